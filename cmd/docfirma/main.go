// docfirma is the local companion to the deployed finalizer: it appends
// signatures to a ledger file, finalizes a document into its artifact and
// verifies that a ledger still binds to a document's bytes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/docfirma/docfirma/internal/assemble"
	"github.com/docfirma/docfirma/internal/binding"
	"github.com/docfirma/docfirma/internal/ledger"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "sign":
		err = runSign(os.Args[2:])
	case "finalize":
		err = runFinalize(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "reset":
		err = runReset(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Command failed.", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: docfirma <command> [flags]

commands:
  sign      append a signature to a ledger file
  finalize  produce the finalized artifact for a document and its ledger
  verify    check that every ledger entry still binds to the document bytes
  reset     clear locally stored device identity`)
}

func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	docPath := fs.String("doc", "", "path to the signed document (PDF)")
	ledgerPath := fs.String("ledger", "", "path to the ledger JSON (created if missing)")
	name := fs.String("name", "", "signer full name")
	cpf := fs.String("cpf", "", "signer CPF (formatted or digits)")
	device := fs.String("device", "", "device token override")
	configPath := fs.String("config", "", "path to a docfirma.toml config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" || *ledgerPath == "" || *name == "" || *cpf == "" {
		return fmt.Errorf("sign requires -doc, -ledger, -name and -cpf")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	docBytes, err := os.ReadFile(*docPath)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	taxID, err := ledger.NormalizeTaxID(*cpf)
	if err != nil {
		return err
	}
	if err := validateCPF(taxID); err != nil {
		return err
	}

	deviceToken := *device
	if deviceToken == "" {
		deviceToken = cfg.DeviceToken
	}
	if deviceToken == "" {
		deviceToken, err = loadOrMintDeviceToken(cfg.StatePath)
		if err != nil {
			return err
		}
	}

	led, err := loadOrCreateLedger(*ledgerPath, *docPath, docBytes)
	if err != nil {
		return err
	}

	now := time.Now()
	signedAt := ledger.FormatTime(now)
	normalizedName := ledger.NormalizeName(*name)
	rec := ledger.SignerRecord{
		ID:          ledger.NewSignerID(),
		Name:        normalizedName,
		TaxID:       taxID,
		DeviceToken: deviceToken,
		SignedAt:    signedAt,
		Digest:      binding.ComputeBinding(docBytes, normalizedName, taxID, deviceToken, signedAt),
	}
	led = led.Append(rec, now)

	data, err := ledger.Marshal(led)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := os.WriteFile(*ledgerPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	slog.Info("Signature recorded.", "ledger", *ledgerPath, "signer", normalizedName, "digest", binding.Abbreviate(rec.Digest, 8))
	return nil
}

func runFinalize(args []string) error {
	fs := flag.NewFlagSet("finalize", flag.ExitOnError)
	docPath := fs.String("doc", "", "path to the signed document (PDF)")
	ledgerPath := fs.String("ledger", "", "path to the ledger JSON")
	outPath := fs.String("out", "", "output path (default: <doc>-finalizado.pdf in the output dir)")
	configPath := fs.String("config", "", "path to a docfirma.toml config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" || *ledgerPath == "" {
		return fmt.Errorf("finalize requires -doc and -ledger")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	docBytes, led, err := loadInputs(*docPath, *ledgerPath)
	if err != nil {
		return err
	}

	out, err := assemble.NewPDF().Finalize(context.Background(), docBytes, led)
	if err != nil {
		return err
	}

	target := *outPath
	if target == "" {
		base := filepath.Base(*docPath)
		ext := filepath.Ext(base)
		target = filepath.Join(cfg.OutputDir, base[:len(base)-len(ext)]+"-finalizado"+ext)
	}
	if err := os.WriteFile(target, out, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	slog.Info("Artifact written.", "path", target, "bytes", len(out))
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	docPath := fs.String("doc", "", "path to the signed document (PDF)")
	ledgerPath := fs.String("ledger", "", "path to the ledger JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" || *ledgerPath == "" {
		return fmt.Errorf("verify requires -doc and -ledger")
	}

	docBytes, led, err := loadInputs(*docPath, *ledgerPath)
	if err != nil {
		return err
	}

	mismatches, err := assemble.VerifyLedger(context.Background(), docBytes, led)
	if err != nil {
		for _, m := range mismatches {
			slog.Error("Entry does not bind.", "index", m.Index, "signerId", m.SignerID,
				"stored", binding.Abbreviate(m.Stored, 8), "computed", binding.Abbreviate(m.Computed, 8))
		}
		return err
	}
	slog.Info("Ledger verified.", "signers", len(led.Signatures))
	return nil
}

func runReset(args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a docfirma.toml config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	store, err := openStateStore(cfg.StatePath)
	if err != nil {
		return err
	}
	if err := store.Delete(context.Background(), deviceTokenKey); err != nil {
		return err
	}
	slog.Info("Device identity cleared.")
	return nil
}

func loadInputs(docPath, ledgerPath string) ([]byte, ledger.DocumentLedger, error) {
	docBytes, err := os.ReadFile(docPath)
	if err != nil {
		return nil, ledger.DocumentLedger{}, fmt.Errorf("failed to read document: %w", err)
	}
	ledgerBytes, err := os.ReadFile(ledgerPath)
	if err != nil {
		return nil, ledger.DocumentLedger{}, fmt.Errorf("failed to read ledger: %w", err)
	}
	led, err := ledger.Unmarshal(ledgerBytes)
	if err != nil {
		return nil, ledger.DocumentLedger{}, err
	}
	return docBytes, led, nil
}

func loadOrCreateLedger(ledgerPath, docPath string, docBytes []byte) (ledger.DocumentLedger, error) {
	data, err := os.ReadFile(ledgerPath)
	if os.IsNotExist(err) {
		info, statErr := os.Stat(docPath)
		lastModified := ""
		if statErr == nil {
			lastModified = ledger.FormatTime(info.ModTime())
		}
		return ledger.New(ledger.SourceMetadata{
			FileName:     filepath.Base(docPath),
			FileSize:     int64(len(docBytes)),
			LastModified: lastModified,
		}, time.Now()), nil
	}
	if err != nil {
		return ledger.DocumentLedger{}, fmt.Errorf("failed to read ledger: %w", err)
	}
	return ledger.Unmarshal(data)
}

// loadOrMintDeviceToken returns the device identity stored in the state
// file, minting and persisting one on first use.
func loadOrMintDeviceToken(statePath string) (string, error) {
	store, err := openStateStore(statePath)
	if err != nil {
		return "", err
	}
	ctx := context.Background()
	if v, ok, err := store.Get(ctx, deviceTokenKey); err != nil {
		return "", err
	} else if ok {
		return string(v), nil
	}
	token := "dev-" + uuid.NewString()
	if err := store.Set(ctx, deviceTokenKey, []byte(token)); err != nil {
		return "", err
	}
	slog.Info("Minted new device identity.", "token", token)
	return token, nil
}
