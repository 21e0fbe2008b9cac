// Package translate projects a decoded save into a relational snapshot:
// one table per structure definition, one row per instance, so that
// questions the game never answers ("which cities has this profile
// visited?") become plain SQL.
//
// The package speaks database/sql and is driver-agnostic; the CLI
// registers modernc.org/sqlite. Scalars bind natively, tokens and unit
// IDs bind as their canonical strings, and arrays and vectors bind as
// JSON so they stay queryable with SQLite's JSON operators.
package translate

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/calzoneman/siirs/sii"
)

// Snapshot drains the parser into db inside a single transaction. Every
// definition becomes a CREATE TABLE with a leading unit_id column; every
// instance becomes an INSERT. Any decode or SQL failure rolls the whole
// snapshot back.
func Snapshot(db *sql.DB, p *sii.Parser) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	defs := make(map[uint32]*sii.Definition)
	for {
		blk, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch b := blk.(type) {
		case *sii.Definition:
			defs[b.ID] = b
			if err := createTable(tx, b); err != nil {
				return err
			}
		case *sii.Instance:
			def, ok := defs[b.DefID]
			if !ok {
				return fmt.Errorf("instance of unknown definition %08X", b.DefID)
			}
			if err := insertInstance(tx, def, b); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func createTable(tx *sql.Tx, def *sii.Definition) error {
	cols := make([]string, 0, len(def.Fields)+1)
	cols = append(cols, quoteIdent("unit_id"))
	for _, fd := range def.Fields {
		cols = append(cols, quoteIdent(fd.Name))
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(def.Name), strings.Join(cols, ", "))
	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("create table for %q: %w", def.Name, err)
	}
	return nil
}

func insertInstance(tx *sql.Tx, def *sii.Definition, inst *sii.Instance) error {
	cols := make([]string, 0, len(def.Fields)+1)
	params := make([]string, 0, len(def.Fields)+1)
	args := make([]any, 0, len(def.Fields)+1)

	cols = append(cols, quoteIdent("unit_id"))
	params = append(params, "?")
	args = append(args, inst.ID.String())

	for _, fd := range def.Fields {
		v, ok := inst.Fields[fd.Name]
		if !ok {
			continue
		}
		bound, err := bindValue(v)
		if err != nil {
			return fmt.Errorf("field %q of %q: %w", fd.Name, def.Name, err)
		}
		cols = append(cols, quoteIdent(fd.Name))
		params = append(params, "?")
		args = append(args, bound)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(def.Name), strings.Join(cols, ", "), strings.Join(params, ", "))
	if _, err := tx.Exec(stmt, args...); err != nil {
		return fmt.Errorf("insert %s into %q: %w", inst.ID, def.Name, err)
	}
	return nil
}

// bindValue maps a decoded value onto a database/sql bind type.
func bindValue(v sii.Value) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return x, nil
	case float32:
		return float64(x), nil
	case int32:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		// SQLite integers are signed 64-bit; sentinel values like
		// 0xFFFFFFFFFFFFFFFF come back as -1.
		return int64(x), nil
	case sii.Token:
		return x.String(), nil
	case sii.ID:
		return x.String(), nil
	case []string, []float32, []int32, []uint32, []uint16,
		[]int64, []uint64, []bool,
		sii.Vec2, sii.Vec3, sii.Vec4, sii.Placement, sii.Vec3i,
		[]sii.Vec3, []sii.Vec4, []sii.Placement, []sii.Vec3i:
		return jsonBind(v)
	case []sii.Token:
		strs := make([]string, len(x))
		for i, t := range x {
			strs[i] = t.String()
		}
		return jsonBind(strs)
	case []sii.ID:
		strs := make([]string, len(x))
		for i, id := range x {
			strs[i] = id.String()
		}
		return jsonBind(strs)
	}
	return nil, fmt.Errorf("no SQL binding for %T", v)
}

func jsonBind(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
