package achievements

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/calzoneman/siirs/sii"
)

// companyPrefix is stripped from delivery-log company references; the
// achievements schema names targets without it.
const companyPrefix = "company.volatile."

type RequirementStatus int

const (
	NotStarted RequirementStatus = iota
	Started
	Completed
)

// Requirement is one target of an achievement and the player's progress
// toward it.
type Requirement struct {
	Name     string
	Status   RequirementStatus
	Progress string
}

// Status is the evaluation of one achievement.
type Status struct {
	ID           string
	Name         string
	Requirements []Requirement

	// Unhandled marks achievements whose schema uses conditions this
	// evaluator does not model (source or cargo constraints).
	Unhandled bool
}

// deliveries are the (sender, recipient) company pairs from the save's
// delivery log.
type deliveries [][2]string

func deliveryLog(save *Save) (deliveries, error) {
	var out deliveries
	for _, entry := range save.Named("delivery_log_entry") {
		params, err := sii.Field[[]string](entry, "params")
		if err != nil {
			return nil, fmt.Errorf("delivery log entry %s: %w", entry.ID, err)
		}
		if len(params) < 3 {
			return nil, fmt.Errorf("delivery log entry %s: %d params", entry.ID, len(params))
		}
		out = append(out, [2]string{
			strings.TrimPrefix(params[1], companyPrefix),
			strings.TrimPrefix(params[2], companyPrefix),
		})
	}
	return out, nil
}

func (d deliveries) countByRecipient(target string) int {
	n := 0
	for _, job := range d {
		if job[1] == target {
			n++
		}
	}
	return n
}

// EachCompany evaluates every achievement_each_company_data unit in the
// textual achievements schema against the save's delivery log. Units
// using source or cargo constraints are reported as Unhandled rather
// than silently mis-scored.
func EachCompany(save *Save, schema []byte) ([]Status, error) {
	jobs, err := deliveryLog(save)
	if err != nil {
		return nil, err
	}
	p, err := sii.NewTextParser(schema)
	if err != nil {
		return nil, err
	}

	var out []Status
	for {
		unit, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if unit.Name != "achievement_each_company_data" {
			continue
		}
		st, err := evalEachCompany(unit, jobs)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func evalEachCompany(unit *sii.Instance, jobs deliveries) (Status, error) {
	st := Status{ID: unit.ID.String()}

	if _, hasSources := unit.Fields["sources"]; hasSources {
		st.Unhandled = true
	}
	if _, hasCargos := unit.Fields["cargos"]; hasCargos {
		st.Unhandled = true
	}
	name, err := sii.Field[string](unit, "achievement_name")
	if err != nil {
		return Status{}, fmt.Errorf("achievement %s: %w", unit.ID, err)
	}
	st.Name = name
	if st.Unhandled {
		return st, nil
	}

	targets, err := sii.Field[[]string](unit, "targets")
	if err != nil {
		return Status{}, fmt.Errorf("achievement %s: %w", unit.ID, err)
	}
	// A target listed twice means two deliveries are required.
	required := make(map[string]int)
	for _, t := range targets {
		required[t]++
	}
	names := make([]string, 0, len(required))
	for t := range required {
		names = append(names, t)
	}
	sort.Strings(names)

	for _, target := range names {
		need := required[target]
		done := jobs.countByRecipient(target)
		status := NotStarted
		switch {
		case done >= need:
			status = Completed
		case done > 0:
			status = Started
		}
		st.Requirements = append(st.Requirements, Requirement{
			Name:     target,
			Status:   status,
			Progress: fmt.Sprintf("%d/%d", done, need),
		})
	}
	return st, nil
}
