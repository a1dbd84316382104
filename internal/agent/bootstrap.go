package agent

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sibyl/internal/ledger"
	"sibyl/internal/logger"
	"sibyl/internal/pkg/symbol"
)

// bootstrapFile 是 configs/symbols.yaml 的结构。
type bootstrapFile struct {
	Symbols []string `yaml:"symbols"`
}

// Bootstrapper registers locally configured symbols that are missing from the
// contract's registry. Runs once at startup; the registry on the ledger stays
// authoritative afterwards.
type Bootstrapper struct {
	client ledger.Client
	path   string
}

func NewBootstrapper(client ledger.Client, path string) *Bootstrapper {
	return &Bootstrapper{client: client, path: path}
}

// Ensure submits add_symbol for every configured symbol the registry lacks.
// A missing file is not an error: bootstrap is optional. Ledger failures are
// not fatal either; the health gate re-checks the registry on every run, so
// a warning here is enough.
func (b *Bootstrapper) Ensure(ctx context.Context) error {
	wanted, err := loadBootstrapSymbols(b.path)
	if err != nil {
		return err
	}
	if len(wanted) == 0 {
		return nil
	}

	registered, err := b.client.ListSymbols(ctx)
	if err != nil {
		logger.Warnf("bootstrap: registry unreachable, skipping: %v", err)
		return nil
	}
	have := make(map[string]struct{}, len(registered))
	for _, sym := range registered {
		have[sym] = struct{}{}
	}

	for _, sym := range wanted {
		if _, ok := have[sym]; ok {
			continue
		}
		txID, err := b.client.Submit(ctx, ledger.FnAddSymbol, []any{sym})
		if err != nil {
			// Racing another operator instance can reject the duplicate; that
			// still leaves the symbol registered.
			if ledger.IsTerminal(err) {
				logger.Warnf("bootstrap: add_symbol %s rejected: %v", sym, err)
			} else {
				logger.Warnf("bootstrap: add_symbol %s failed: %v", sym, err)
			}
			continue
		}
		logger.Infof("bootstrap: registering %s (tx %s)", sym, txID)
	}
	return nil
}

func loadBootstrapSymbols(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debugf("bootstrap: %s not found, skipping", path)
			return nil, nil
		}
		return nil, fmt.Errorf("bootstrap: read %s: %w", path, err)
	}
	var file bootstrapFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("bootstrap: parse %s: %w", path, err)
	}
	return symbol.NormalizeList(file.Symbols), nil
}
