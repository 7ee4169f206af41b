package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/safe/cmd"
	"github.com/illarion/safe/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	global := flag.NewFlagSet("safe", flag.ExitOnError)
	store := global.String("store", "", "Record store file (env SAFE_STORE)")
	noKeyring := global.Bool("no-keyring", false, "Do not use the OS keyring (env SAFE_NO_KEYRING)")
	logLevel := global.String("log-level", "", "Log level: debug, info, warn, error (env SAFE_LOG_LEVEL)")
	global.Usage = printUsage
	if err := global.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if global.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command, args := global.Arg(0), global.Args()[1:]

	switch command {
	case "help", "-h", "--help":
		if len(args) == 0 {
			printUsage()
			return
		}
		printCommandHelp(args[0])
		return
	case "completion":
		runCompletion(args)
		return
	}

	cfg := cmd.LoadConfig(&config.Config{
		StorePath: *store,
		NoKeyring: *noKeyring,
		LogLevel:  *logLevel,
	})

	switch command {
	case "encrypt":
		runEncrypt(ctx, cfg, args)
	case "decrypt":
		runDecrypt(ctx, cfg, args)
	case "encrypt-file":
		runFiles(ctx, cfg, command, args, cmd.EncryptFiles)
	case "decrypt-file":
		runFiles(ctx, cfg, command, args, cmd.DecryptFiles)
	case "store":
		runStore(ctx, cfg, args)
	case "records", "ls":
		runRecords(ctx, cfg, args)
	case "show":
		runShow(ctx, cfg, args)
	case "rm":
		runRm(ctx, cfg, args)
	case "diff":
		runDiff(ctx, cfg, args)
	case "compact":
		runCompact(ctx, cfg, args)
	case "key":
		runKey(ctx, cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func usageError(usage string) {
	fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
	os.Exit(1)
}

func runEncrypt(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	raw := fs.Bool("raw", false, "Print the bare base64 envelope without the data URI prefix")
	clip := fs.Bool("clip", false, "Copy the result to the clipboard")
	parseFlags(fs, args)

	cmd.Encrypt(ctx, cfg, fs.Args(), *raw, *clip)
}

func runDecrypt(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	clip := fs.Bool("clip", false, "Copy the result to the clipboard")
	parseFlags(fs, args)

	cmd.Decrypt(ctx, cfg, fs.Args(), *clip)
}

type filesFunc func(ctx context.Context, cfg *config.Config, inputs []string, outDir string, force, keepLocal, keepBoth bool)

func runFiles(ctx context.Context, cfg *config.Config, name string, args []string, run filesFunc) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	outDir := fs.String("o", ".", "Output directory")
	force := fs.Bool("force", false, "Overwrite existing files without asking")
	keepLocal := fs.Bool("keep-local", false, "Skip all conflicts, keep existing files")
	keepBoth := fs.Bool("keep-both", false, "Keep both versions (save new output as .from-safe)")
	parseFlags(fs, args)

	run(ctx, cfg, fs.Args(), *outDir, *force, *keepLocal, *keepBoth)
}

func runStore(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	parseFlags(fs, args)

	if fs.NArg() < 1 {
		usageError("safe store <name> [envelope|-]")
	}
	cmd.Store(ctx, cfg, fs.Arg(0), fs.Args()[1:])
}

func runRecords(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("records", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Records(ctx, cfg)
}

func runShow(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	clip := fs.Bool("clip", false, "Copy the result to the clipboard")
	parseFlags(fs, args)

	if fs.NArg() != 1 {
		usageError("safe show [--clip] <name>")
	}
	cmd.Show(ctx, cfg, fs.Arg(0), *clip)
}

func runRm(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	parseFlags(fs, args)

	if fs.NArg() < 1 {
		usageError("safe rm <name> [name...]")
	}
	cmd.Remove(ctx, cfg, fs.Args())
}

func runDiff(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	parseFlags(fs, args)

	if fs.NArg() != 2 {
		usageError("safe diff <name> <file>")
	}
	cmd.Diff(ctx, cfg, fs.Arg(0), fs.Arg(1))
}

func runCompact(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Compact(ctx, cfg)
}

func runKey(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) < 1 {
		usageError("safe key <export|save|import|forget|status>")
	}

	fs := flag.NewFlagSet("key "+args[0], flag.ExitOnError)
	clip := fs.Bool("clip", false, "Copy the exported key to the clipboard")
	parseFlags(fs, args[1:])

	switch args[0] {
	case "export":
		cmd.KeyExport(ctx, cfg, *clip)
	case "save":
		cmd.KeySave(ctx, cfg)
	case "import":
		cmd.KeyImport(ctx, cfg, fs.Args())
	case "forget":
		cmd.KeyForget(ctx, cfg)
	case "status":
		cmd.KeyStatus(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown key command: %s\n", args[0])
		usageError("safe key <export|save|import|forget|status>")
	}
}

func runCompletion(args []string) {
	if len(args) < 1 {
		usageError("safe completion <bash|zsh|fish>")
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("safe - passphrase encryption for text, files and stored records")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  safe [--store file] [--no-keyring] [--log-level level] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  encrypt       Encrypt text")
	fmt.Println("  decrypt       Decrypt text")
	fmt.Println("  encrypt-file  Encrypt files to <name>-encrypted.bin")
	fmt.Println("  decrypt-file  Decrypt -encrypted.bin files")
	fmt.Println("  store         Store encrypted text as a named record")
	fmt.Println("  records, ls   List stored records")
	fmt.Println("  show          Decrypt a stored record")
	fmt.Println("  rm            Remove stored records")
	fmt.Println("  diff          Compare a stored record with a local file")
	fmt.Println("  compact       Compact the record store")
	fmt.Println("  key           Export, cache or forget the cipher key")
	fmt.Println("  completion    Generate shell completions")
	fmt.Println("  help          Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  safe encrypt 'my secret'            # Print an encrypted envelope")
	fmt.Println("  safe encrypt 'pin' | safe store pin # Keep it as a record")
	fmt.Println("  safe show pin                       # Decrypt the record")
	fmt.Println("  safe encrypt-file -o out report.pdf # Write out/report.pdf-encrypted.bin")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  SAFE_PASSPHRASE, SAFE_STORE, SAFE_LOG_LEVEL, SAFE_NO_KEYRING, SAFE_KEYRING_SERVICE")
	fmt.Println()
	fmt.Println("Use 'safe help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "encrypt":
		fmt.Println("safe encrypt [--raw] [--clip] [text|-]")
		fmt.Println()
		fmt.Println("Encrypts text given as an argument or read from stdin.")
		fmt.Println("Prints data:application/octet-binary;base64,<envelope>.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --raw    Print the bare base64 envelope")
		fmt.Println("  --clip   Copy the result to the clipboard")
	case "decrypt":
		fmt.Println("safe decrypt [--clip] [envelope|-]")
		fmt.Println()
		fmt.Println("Decrypts a text envelope, with or without the data URI prefix.")
	case "encrypt-file":
		fmt.Println("safe encrypt-file [-o dir] [--force|--keep-local|--keep-both] <file> [file...]")
		fmt.Println()
		fmt.Println("Encrypts each file to <name>-encrypted.bin in the output directory.")
		fmt.Println("Trailing \" (N)\" download suffixes are removed from names.")
		fmt.Println("Supports glob patterns. Files are processed one at a time.")
	case "decrypt-file":
		fmt.Println("safe decrypt-file [-o dir] [--force|--keep-local|--keep-both] <file> [file...]")
		fmt.Println()
		fmt.Println("Decrypts each file, removing the -encrypted.bin suffix.")
		fmt.Println("Unchanged outputs are skipped. For conflicts, offers:")
		fmt.Println("    [l] Keep existing file")
		fmt.Println("    [o] Overwrite with new output")
		fmt.Println("    [e] Edit merged (opens in $EDITOR, text files only)")
		fmt.Println("    [b] Keep both (save new output as .from-safe)")
		fmt.Println("    [x] Skip this file")
		fmt.Println()
		fmt.Println("Warns when decrypted files are not ignored by git.")
	case "store":
		fmt.Println("safe store <name> [envelope|-]")
		fmt.Println()
		fmt.Println("Stores encrypted text (output of 'safe encrypt') under name.")
		fmt.Println("An existing record with the same name is replaced.")
	case "records", "ls":
		fmt.Println("safe records")
		fmt.Println()
		fmt.Println("Lists stored records. Does not require a passphrase.")
	case "show":
		fmt.Println("safe show [--clip] <name>")
		fmt.Println()
		fmt.Println("Decrypts and prints a stored record.")
	case "rm":
		fmt.Println("safe rm <name> [name...]")
		fmt.Println()
		fmt.Println("Removes records and compacts the store.")
	case "diff":
		fmt.Println("safe diff <name> <file>")
		fmt.Println()
		fmt.Println("Shows a unified diff from the decrypted record to a local file.")
	case "compact":
		fmt.Println("safe compact")
		fmt.Println()
		fmt.Println("Compacts the record store to reclaim unused disk space.")
		fmt.Println("Done automatically after 'rm'. Does not require a passphrase.")
	case "key":
		fmt.Println("safe key <export|save|import|forget|status>")
		fmt.Println()
		fmt.Println("  export [--clip]   Print the base64 key derived from the passphrase")
		fmt.Println("  save              Cache the derived key in the OS keyring")
		fmt.Println("  import <key|->    Cache an exported key in the OS keyring")
		fmt.Println("  forget            Remove the cached key")
		fmt.Println("  status            Show whether a key is cached")
		fmt.Println()
		fmt.Println("A cached key is used instead of prompting. If it fails to decrypt,")
		fmt.Println("the passphrase is asked once and the cache can be refreshed.")
	case "completion":
		fmt.Println("safe completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(safe completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(safe completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  safe completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
