package achievements

import (
	"fmt"
	"io"

	"github.com/calzoneman/siirs/sii"
	"github.com/calzoneman/siirs/threenk"
)

// LocaleDB maps localization keys to display strings, loaded from a
// localization_db unit. Locale files ship 3nK-wrapped inside the locale
// archive; plain text input is accepted too.
type LocaleDB struct {
	entries map[string]string
}

func EmptyLocaleDB() *LocaleDB {
	return &LocaleDB{entries: make(map[string]string)}
}

func LoadLocale(data []byte) (*LocaleDB, error) {
	if threenk.IsWrapped(data) {
		var err error
		if data, err = threenk.Decode(data); err != nil {
			return nil, err
		}
	}
	p, err := sii.NewTextParser(data)
	if err != nil {
		return nil, err
	}
	unit, err := p.Next()
	if err == io.EOF {
		return nil, fmt.Errorf("missing localization_db unit")
	}
	if err != nil {
		return nil, err
	}

	keys, err := sii.Field[[]string](unit, "key")
	if err != nil {
		return nil, err
	}
	vals, err := sii.Field[[]string](unit, "val")
	if err != nil {
		return nil, err
	}
	if len(keys) != len(vals) {
		return nil, fmt.Errorf("localization_db has %d keys but %d values", len(keys), len(vals))
	}

	db := EmptyLocaleDB()
	for i, k := range keys {
		db.entries[k] = vals[i]
	}
	return db, nil
}

// Localize resolves a key, reporting whether it was present.
func (db *LocaleDB) Localize(key string) (string, bool) {
	v, ok := db.entries[key]
	return v, ok
}

// Len reports the number of loaded strings.
func (db *LocaleDB) Len() int { return len(db.entries) }
