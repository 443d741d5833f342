// knish-cli is a command-line client for interacting with a Knish.IO node.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/wishknish/knishio-client-go/config"
	"github.com/wishknish/knishio-client-go/internal/client"
	"github.com/wishknish/knishio-client-go/internal/keystore"
	klog "github.com/wishknish/knishio-client-go/internal/log"
	"github.com/wishknish/knishio-client-go/internal/storage"
	"github.com/wishknish/knishio-client-go/pkg/atom"
	"github.com/wishknish/knishio-client-go/pkg/molecule"
	"github.com/wishknish/knishio-client-go/pkg/wallet"
)

const version = "0.1.0"

// env bundles the pieces every subcommand needs.
type env struct {
	cfg    *config.Config
	ks     *keystore.Keystore
	client *client.Client
}

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fatal("%v", err)
	}
	if flags.Help {
		config.Usage()
		return
	}
	if flags.Version {
		fmt.Printf("knish-cli version %s\n", version)
		return
	}
	if len(flags.Args) == 0 {
		config.Usage()
		os.Exit(1)
	}

	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	ks, err := keystore.New(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	e := &env{
		cfg:    cfg,
		ks:     ks,
		client: client.NewWithTimeout(cfg.Node.URI, time.Duration(cfg.Node.Timeout)*time.Second),
	}

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	switch cmd {
	case "identity":
		cmdIdentity(e, cmdArgs)
	case "wallet":
		cmdWallet(e, cmdArgs)
	case "molecule":
		cmdMolecule(e, cmdArgs)
	case "version":
		fmt.Printf("knish-cli version %s\n", version)
	case "help":
		config.Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		config.Usage()
		os.Exit(1)
	}
}

// ── identity commands ───────────────────────────────────────────────────

func cmdIdentity(e *env, args []string) {
	if len(args) == 0 {
		fatal("Usage: knish-cli identity <new|import|list>")
	}
	switch args[0] {
	case "new":
		cmdIdentityNew(e, args[1:])
	case "import":
		cmdIdentityImport(e, args[1:])
	case "list":
		cmdIdentityList(e)
	default:
		fatal("Unknown identity command: %s", args[0])
	}
}

func cmdIdentityNew(e *env, args []string) {
	if len(args) != 1 {
		fatal("Usage: knish-cli identity new <name>")
	}
	name := args[0]

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	secret, err := wallet.SecretFromMnemonic(mnemonic, "", 0)
	if err != nil {
		fatal("derive secret: %v", err)
	}

	password := promptNewPassword()
	if err := e.ks.Create(name, secret, password, keystore.DefaultParams()); err != nil {
		fatal("create identity: %v", err)
	}
	bundle, err := wallet.BundleHash(secret)
	if err != nil {
		fatal("derive bundle: %v", err)
	}

	fmt.Printf("\nIdentity created: %s\n", name)
	fmt.Printf("Bundle: %s\n", bundle)
}

func cmdIdentityImport(e *env, args []string) {
	if len(args) != 1 {
		fatal("Usage: knish-cli identity import <name>")
	}
	name := args[0]

	secret, err := readPassword("Enter secret (hidden): ")
	if err != nil {
		fatal("read secret: %v", err)
	}
	if len(secret) == 0 {
		fatal("secret must not be empty")
	}

	// A mnemonic is also accepted in place of a raw hex secret.
	secretStr := strings.TrimSpace(string(secret))
	if wallet.ValidateMnemonic(secretStr) {
		secretStr, err = wallet.SecretFromMnemonic(secretStr, "", 0)
		if err != nil {
			fatal("derive secret: %v", err)
		}
	}

	password := promptNewPassword()
	if err := e.ks.Create(name, secretStr, password, keystore.DefaultParams()); err != nil {
		fatal("create identity: %v", err)
	}
	bundle, err := wallet.BundleHash(secretStr)
	if err != nil {
		fatal("derive bundle: %v", err)
	}

	fmt.Printf("Identity created: %s\n", name)
	fmt.Printf("Bundle: %s\n", bundle)
}

func cmdIdentityList(e *env) {
	names, err := e.ks.List()
	if err != nil {
		fatal("list identities: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No identities. Create one with: knish-cli identity new <name>")
		return
	}
	for _, name := range names {
		bundle, err := e.ks.Bundle(name)
		if err != nil {
			fatal("read identity %q: %v", name, err)
		}
		fmt.Printf("%-20s %s\n", name, bundle)
	}
}

// ── wallet commands ─────────────────────────────────────────────────────

func cmdWallet(e *env, args []string) {
	if len(args) == 0 {
		fatal("Usage: knish-cli wallet <address|balance>")
	}
	switch args[0] {
	case "address":
		cmdWalletAddress(e, args[1:])
	case "balance":
		cmdWalletBalance(e, args[1:])
	default:
		fatal("Unknown wallet command: %s", args[0])
	}
}

func cmdWalletAddress(e *env, args []string) {
	if len(args) != 2 {
		fatal("Usage: knish-cli wallet address <name> <token>")
	}
	name, token := args[0], strings.ToUpper(args[1])

	w := unlockWallet(e, name, token)
	fmt.Printf("Token:    %s\n", w.Token)
	fmt.Printf("Address:  %s\n", w.Address)
	fmt.Printf("Position: %s\n", w.Position)
	fmt.Printf("Bundle:   %s\n", w.Bundle)
}

func cmdWalletBalance(e *env, args []string) {
	if len(args) != 2 {
		fatal("Usage: knish-cli wallet balance <name> <token>")
	}
	name, token := args[0], strings.ToUpper(args[1])

	// Balance lookups only need the public bundle hash.
	bundle, err := e.ks.Bundle(name)
	if err != nil {
		fatal("read identity: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(e.cfg.Node.Timeout)*time.Second)
	defer cancel()

	w, err := e.client.Balance(ctx, bundle, token)
	if err != nil {
		fatal("query balance: %v", err)
	}
	if w == nil {
		fmt.Printf("No %s wallet known for bundle %s\n", token, bundle)
		return
	}
	fmt.Printf("Token:   %s\n", w.Token)
	fmt.Printf("Balance: %s\n", w.Balance)
	fmt.Printf("Address: %s\n", w.Address)
}

// ── molecule commands ───────────────────────────────────────────────────

func cmdMolecule(e *env, args []string) {
	if len(args) == 0 {
		fatal("Usage: knish-cli molecule <meta|transfer|verify>")
	}
	switch args[0] {
	case "meta":
		cmdMoleculeMeta(e, args[1:])
	case "transfer":
		cmdMoleculeTransfer(e, args[1:])
	case "verify":
		cmdMoleculeVerify(args[1:])
	default:
		fatal("Unknown molecule command: %s", args[0])
	}
}

func cmdMoleculeMeta(e *env, args []string) {
	if len(args) < 1 {
		fatal("Usage: knish-cli molecule meta <name> --type <metaType> --id <metaId> --meta k=v[,k=v...]")
	}
	name := args[0]

	fs := flag.NewFlagSet("molecule meta", flag.ExitOnError)
	metaType := fs.String("type", "", "Meta type")
	metaID := fs.String("id", "", "Meta ID")
	metaPairs := fs.String("meta", "", "Comma-separated key=value pairs")
	fs.Parse(args[1:])

	if *metaType == "" || *metaID == "" || *metaPairs == "" {
		fatal("--type, --id and --meta are required")
	}

	var meta []atom.MetaEntry
	for _, pair := range strings.Split(*metaPairs, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			fatal("invalid meta pair %q (expected key=value)", pair)
		}
		meta = append(meta, atom.MetaEntry{Key: kv[0], Value: kv[1]})
	}

	secret := loadSecret(e, name)
	source, err := wallet.NewRemainder(secret, "USER")
	if err != nil {
		fatal("derive wallet: %v", err)
	}

	m := molecule.New(secret,
		molecule.WithSourceWallet(source),
		molecule.WithCell(e.cfg.Node.CellSlug),
	)
	if err := m.InitMeta(meta, *metaType, *metaID); err != nil {
		fatal("build molecule: %v", err)
	}

	signAndPropose(e, m, nil)
}

func cmdMoleculeTransfer(e *env, args []string) {
	if len(args) < 1 {
		fatal("Usage: knish-cli molecule transfer <name> --token <slug> --amount <n> --to <bundle>")
	}
	name := args[0]

	fs := flag.NewFlagSet("molecule transfer", flag.ExitOnError)
	token := fs.String("token", "", "Token slug")
	amount := fs.String("amount", "", "Amount to transfer")
	to := fs.String("to", "", "Recipient bundle hash")
	fs.Parse(args[1:])

	if *token == "" || *amount == "" || *to == "" {
		fatal("--token, --amount and --to are required")
	}
	slug := strings.ToUpper(*token)

	secret := loadSecret(e, name)
	source := unlockWalletWithSecret(e, name, secret, slug)

	// The node holds the authoritative balance.
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(e.cfg.Node.Timeout)*time.Second)
	remote, err := e.client.Balance(ctx, source.Bundle, slug)
	cancel()
	if err != nil {
		fatal("query balance: %v", err)
	}
	if remote != nil {
		source.Balance = remote.Balance
		if remote.Position != "" {
			// Spend from the wallet the node knows about.
			source, err = wallet.New(secret, slug, remote.Position)
			if err != nil {
				fatal("derive wallet: %v", err)
			}
			source.Balance = remote.Balance
		}
	}

	remainder, err := wallet.NewRemainder(secret, slug)
	if err != nil {
		fatal("derive remainder wallet: %v", err)
	}

	recipient := wallet.NewShadow(*to, slug)

	m := molecule.New(secret,
		molecule.WithSourceWallet(source),
		molecule.WithRemainderWallet(remainder),
		molecule.WithCell(e.cfg.Node.CellSlug),
	)
	if err := m.InitValue(recipient, *amount); err != nil {
		fatal("build molecule: %v", err)
	}

	signAndPropose(e, m, source)

	if err := e.ks.SetPosition(name, slug, remainder.Position); err != nil {
		fatal("record wallet position: %v", err)
	}
}

func cmdMoleculeVerify(args []string) {
	if len(args) != 1 {
		fatal("Usage: knish-cli molecule verify <molecule.json>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fatal("read molecule: %v", err)
	}

	var m molecule.Molecule
	if err := json.Unmarshal(data, &m); err != nil {
		fatal("parse molecule: %v", err)
	}

	check, err := molecule.NewCheck(&m)
	if err != nil {
		fatal("molecule malformed: %v", err)
	}
	if err := check.Verify(nil); err != nil {
		fatal("verification failed: %v", err)
	}

	fmt.Printf("Molecule %s verifies (%d atoms)\n", m.MolecularHash, len(m.Atoms))
}

// ── shared helpers ──────────────────────────────────────────────────────

// signAndPropose signs the molecule, re-verifies it locally, submits it to
// the node and caches the accepted result.
func signAndPropose(e *env, m *molecule.Molecule, senderWallet *wallet.Wallet) {
	if _, err := m.Sign(molecule.SignOptions{}); err != nil {
		fatal("sign molecule: %v", err)
	}

	check, err := molecule.NewCheck(m)
	if err != nil {
		fatal("self-check: %v", err)
	}
	if err := check.Verify(senderWallet); err != nil {
		fatal("self-check: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(e.cfg.Node.Timeout)*time.Second)
	defer cancel()

	result, err := e.client.ProposeMolecule(ctx, m)
	if err != nil {
		fatal("propose molecule: %v", err)
	}
	if !result.Accepted() {
		fatal("node rejected molecule %s: %s %s", result.MolecularHash, result.Status, result.Reason)
	}

	cacheMolecule(e, m)
	fmt.Printf("Molecule accepted: %s\n", m.MolecularHash)
}

func cacheMolecule(e *env, m *molecule.Molecule) {
	db, err := storage.NewBadger(e.cfg.CacheDir())
	if err != nil {
		klog.Storage.Warn().Err(err).Msg("cache unavailable")
		return
	}
	cache := storage.NewCache(db)
	defer cache.Close()
	if err := cache.PutMolecule(m); err != nil {
		klog.Storage.Warn().Err(err).Msg("cache molecule")
	}
}

// loadSecret prompts for the identity password and decrypts the secret.
func loadSecret(e *env, name string) string {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	secret, err := e.ks.Load(name, password)
	if err != nil {
		fatal("unlock identity: %v", err)
	}
	return secret
}

// unlockWallet decrypts the identity and derives its wallet for a token,
// reusing the recorded position when one exists.
func unlockWallet(e *env, name, token string) *wallet.Wallet {
	return unlockWalletWithSecret(e, name, loadSecret(e, name), token)
}

func unlockWalletWithSecret(e *env, name, secret, token string) *wallet.Wallet {
	position, err := e.ks.Position(name, token)
	if err != nil {
		fatal("read identity: %v", err)
	}

	w, err := wallet.New(secret, token, position)
	if err != nil {
		fatal("derive wallet: %v", err)
	}

	if position == "" {
		if err := e.ks.SetPosition(name, token, w.Position); err != nil {
			fatal("record wallet position: %v", err)
		}
	}
	return w
}

// promptNewPassword asks for a password twice and insists they match.
func promptNewPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	return password
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
