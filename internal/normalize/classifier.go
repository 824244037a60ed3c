package normalize

import (
	"strings"

	"github.com/baharkarakas/chainspend/internal/models"
)

// Classifier maps a counterparty address to a spending category.
type Classifier func(address string) string

// DefaultAddressBook labels a few well-known counterparties.
var DefaultAddressBook = map[string]string{
	"0x1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b": "Exchange",
	"0x7f1531b6b88f880761c3c1ec478c11e8211994e2": "DeFi",
	"0x2f9c9eee7b368a6a90b93103ac1ce2c522f7d254": "NFTs",
}

// StaticClassifier looks addresses up case-insensitively and falls back to "Other".
func StaticClassifier(book map[string]string) Classifier {
	idx := make(map[string]string, len(book))
	for addr, cat := range book {
		idx[strings.ToLower(strings.TrimSpace(addr))] = cat
	}
	return func(address string) string {
		if cat, ok := idx[strings.ToLower(strings.TrimSpace(address))]; ok {
			return cat
		}
		return models.CategoryOther
	}
}
