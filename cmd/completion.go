package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_safe() {
    local cur prev words cword
    _init_completion || return

    local commands="encrypt decrypt encrypt-file decrypt-file store records ls show rm diff compact key help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        encrypt)
            COMPREPLY=($(compgen -W "--raw --clip" -- "$cur"))
            ;;
        decrypt)
            COMPREPLY=($(compgen -W "--clip" -- "$cur"))
            ;;
        encrypt-file|decrypt-file)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-o --force --keep-local --keep-both" -- "$cur"))
            else
                _filedir
            fi
            ;;
        show|rm|store|diff)
            if [[ $cword -eq 2 ]]; then
                local records
                records=$(safe records 2>/dev/null | grep -E '^  ' | sed 's/^  //' | sed 's/ (.*//')
                COMPREPLY=($(compgen -W "$records" -- "$cur"))
            else
                _filedir
            fi
            ;;
        key)
            COMPREPLY=($(compgen -W "export save import forget status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _safe safe
`

const zshCompletion = `#compdef safe

_safe() {
    local -a commands
    commands=(
        'encrypt:Encrypt text'
        'decrypt:Decrypt text'
        'encrypt-file:Encrypt files to -encrypted.bin'
        'decrypt-file:Decrypt -encrypted.bin files'
        'store:Store encrypted text as a named record'
        'records:List stored records'
        'ls:List stored records'
        'show:Decrypt a stored record'
        'rm:Remove stored records'
        'diff:Compare a record with a local file'
        'compact:Compact the record store'
        'key:Manage the cached key'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'safe commands' commands
            ;;
        args)
            case "${words[2]}" in
                encrypt)
                    _arguments '--raw[Print the bare base64 envelope]' '--clip[Copy result to clipboard]'
                    ;;
                decrypt)
                    _arguments '--clip[Copy result to clipboard]'
                    ;;
                encrypt-file|decrypt-file)
                    _arguments \
                        '-o[Output directory]:directory:_files -/' \
                        '--force[Overwrite existing files without asking]' \
                        '--keep-local[Keep existing files]' \
                        '--keep-both[Keep both versions]' \
                        '*:file:_files'
                    ;;
                show|rm|store|diff)
                    _arguments '1:record:_safe_records' '*:file:_files'
                    ;;
                key)
                    _values 'subcommand' export save import forget status
                    ;;
                help)
                    _describe -t commands 'safe commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_safe_records() {
    local -a records
    records=(${(f)"$(safe records 2>/dev/null | grep -E '^  ' | sed 's/^  //' | sed 's/ (.*//')"})
    _describe -t records 'records' records
}

_safe "$@"
`

const fishCompletion = `# safe fish completions

set -l commands encrypt decrypt encrypt-file decrypt-file store records ls show rm diff compact key help completion

complete -c safe -f

# Commands
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a encrypt -d 'Encrypt text'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a decrypt -d 'Decrypt text'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a encrypt-file -d 'Encrypt files'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a decrypt-file -d 'Decrypt files'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a store -d 'Store encrypted text'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a records -d 'List records'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List records'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a show -d 'Decrypt a record'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove records'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare record with file'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact store'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a key -d 'Manage cached key'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# text flags
complete -c safe -n "__fish_seen_subcommand_from encrypt" -l raw -d 'Print bare envelope'
complete -c safe -n "__fish_seen_subcommand_from encrypt decrypt show" -l clip -d 'Copy to clipboard'

# file flags
complete -c safe -n "__fish_seen_subcommand_from encrypt-file decrypt-file" -s o -r -d 'Output directory'
complete -c safe -n "__fish_seen_subcommand_from encrypt-file decrypt-file" -l force -d 'Overwrite existing files'
complete -c safe -n "__fish_seen_subcommand_from encrypt-file decrypt-file" -l keep-local -d 'Keep existing files'
complete -c safe -n "__fish_seen_subcommand_from encrypt-file decrypt-file" -l keep-both -d 'Keep both versions'
complete -c safe -n "__fish_seen_subcommand_from encrypt-file decrypt-file diff" -F

# records
complete -c safe -n "__fish_seen_subcommand_from show rm store diff" -a "(safe records 2>/dev/null | string match -r '^  \S+' | string trim)"

# key subcommands
complete -c safe -n "__fish_seen_subcommand_from key" -a "export save import forget status"

# help completions
complete -c safe -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c safe -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
