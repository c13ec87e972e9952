/*
Package directory loads the merchant payee directory from a YAML file
and seeds it into the ledger store.

PURPOSE:
  Merchants are administered out of band: operations edits a YAML file,
  the service reads it at startup. Codes are what clients type when
  paying a bill, so they are short and human-friendly (e.g. PAY535).

FILE FORMAT:
  merchants:
    - code: PAY535
      name: Orange Money
    - code: PAY111
      name: Wave

SEE ALSO:
  - ledger/store.go: SaveMerchant upserts by code
*/
package directory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/kalpay/ledger-engine/ledger"
)

type merchantFile struct {
	Merchants []merchantEntry `yaml:"merchants"`
}

type merchantEntry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Load reads and validates the merchant directory at path.
func Load(path string) ([]ledger.Merchant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read merchants file: %w", err)
	}

	var file merchantFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse merchants file: %w", err)
	}

	seen := make(map[string]bool)
	merchants := make([]ledger.Merchant, 0, len(file.Merchants))
	for i, entry := range file.Merchants {
		code := strings.ToUpper(strings.TrimSpace(entry.Code))
		name := strings.TrimSpace(entry.Name)
		if code == "" || name == "" {
			return nil, fmt.Errorf("merchant %d: code and name are required", i)
		}
		if seen[code] {
			return nil, fmt.Errorf("merchant %d: duplicate code %s", i, code)
		}
		seen[code] = true

		merchants = append(merchants, ledger.Merchant{
			ID:   ledger.MerchantID(uuid.NewString()),
			Code: code,
			Name: name,
		})
	}
	return merchants, nil
}

// Seed upserts merchants into the store. Existing codes keep their ID
// so historical entries stay linked; only the name is refreshed.
func Seed(ctx context.Context, store ledger.Store, merchants []ledger.Merchant) error {
	for _, m := range merchants {
		existing, err := store.MerchantByCode(ctx, m.Code)
		if err != nil {
			return err
		}
		if existing != nil {
			m.ID = existing.ID
		}
		if err := store.SaveMerchant(ctx, m); err != nil {
			return err
		}
		zap.L().Debug("merchant seeded",
			zap.String("code", m.Code),
			zap.String("name", m.Name))
	}
	zap.L().Info("merchant directory seeded", zap.Int("count", len(merchants)))
	return nil
}

// LoadAndSeed is the startup convenience: read the file, seed the store.
func LoadAndSeed(ctx context.Context, store ledger.Store, path string) error {
	merchants, err := Load(path)
	if err != nil {
		return err
	}
	return Seed(ctx, store, merchants)
}
