package achievements

import (
	"testing"

	"github.com/calzoneman/siirs/sii"
)

func mustID(t *testing.T, s string) sii.ID {
	t.Helper()
	id, err := sii.ParseID(s)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func mustToken(t *testing.T, s string) sii.Token {
	t.Helper()
	tok, err := sii.ParseToken(s)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// fixtureSave assembles a document the way Decode would: an economy, a
// delivery log with entries, and the log entries themselves.
func fixtureSave(t *testing.T, deliveries [][2]string) *Save {
	t.Helper()
	doc := &sii.Document{}

	entryIDs := make([]sii.ID, len(deliveries))
	for i, d := range deliveries {
		id := sii.NamelessID(uint64(i + 1))
		entryIDs[i] = id
		doc.Instances = append(doc.Instances, &sii.Instance{
			Name: "delivery_log_entry",
			ID:   id,
			Fields: map[string]sii.Value{
				"params": []string{"time", companyPrefix + d[0], companyPrefix + d[1], "cargo"},
			},
		})
	}
	doc.Instances = append(doc.Instances,
		&sii.Instance{
			Name: "delivery_log",
			ID:   mustID(t, "delivery.log"),
			Fields: map[string]sii.Value{
				"entries": entryIDs,
			},
		},
		&sii.Instance{
			Name: "economy",
			ID:   mustID(t, "economy"),
			Fields: map[string]sii.Value{
				"total_fuel_litres":       uint32(812),
				"total_fuel_price":        int64(123456),
				"gas_station_visit_count": uint32(14),
				"experience_points":       uint32(9001),
				"total_distance":          uint32(5200),
				"visited_cities":          []sii.Token{mustToken(t, "riga"), mustToken(t, "tallinn")},
			},
		},
	)
	return NewSave(doc)
}

func TestSave_Lookups(t *testing.T) {
	save := fixtureSave(t, [][2]string{{"a.x", "b.y"}})
	if _, ok := save.ByID(sii.NamelessID(1)); !ok {
		t.Fatal("nameless lookup failed")
	}
	if got := save.Named("delivery_log_entry"); len(got) != 1 {
		t.Fatalf("Named: %d", len(got))
	}
	if _, err := save.SingleNamed("economy"); err != nil {
		t.Fatal(err)
	}
	if _, err := save.SingleNamed("garage"); err == nil {
		t.Fatal("expected error for absent unit class")
	}
}

func TestSummarize(t *testing.T) {
	save := fixtureSave(t, [][2]string{{"a.x", "b.y"}, {"b.y", "a.x"}})
	sum, err := Summarize(save)
	if err != nil {
		t.Fatal(err)
	}
	want := Summary{
		FuelLiters:     812,
		FuelCost:       123456,
		FuelVisits:     14,
		XP:             9001,
		DistanceDriven: 5200,
		CitiesVisited:  2,
		Deliveries:     2,
	}
	if sum != want {
		t.Fatalf("got %+v", sum)
	}
}

const eachCompanySchema = `SiiNunit
{
achievement_each_company_data : .achievement.deliver
{
	achievement_name: deliver_everywhere
	targets[]: "volvo.ostrava"
	targets[]: "volvo.ostrava"
	targets[]: "scania.lyon"
	targets[]: "iveco.turin"
}

achievement_each_company_data : .achievement.sourced
{
	achievement_name: special_source
	sources[]: "volvo.ostrava"
	targets[]: "scania.lyon"
}
}
`

func TestEachCompany(t *testing.T) {
	save := fixtureSave(t, [][2]string{
		{"somewhere.else", "volvo.ostrava"},
		{"somewhere.else", "volvo.ostrava"},
		{"volvo.ostrava", "scania.lyon"},
	})
	statuses, err := EachCompany(save, []byte(eachCompanySchema))
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses", len(statuses))
	}

	st := statuses[0]
	if st.Name != "deliver_everywhere" || st.Unhandled {
		t.Fatalf("first status: %+v", st)
	}
	// Requirements come back sorted by target name.
	want := []Requirement{
		{Name: "iveco.turin", Status: NotStarted, Progress: "0/1"},
		{Name: "scania.lyon", Status: Completed, Progress: "1/1"},
		{Name: "volvo.ostrava", Status: Completed, Progress: "2/2"},
	}
	if len(st.Requirements) != len(want) {
		t.Fatalf("requirements: %+v", st.Requirements)
	}
	for i, req := range st.Requirements {
		if req != want[i] {
			t.Fatalf("requirement %d: got %+v, want %+v", i, req, want[i])
		}
	}

	if !statuses[1].Unhandled {
		t.Fatal("sourced achievement should be unhandled")
	}
	if statuses[1].Name != "special_source" {
		t.Fatalf("unhandled status keeps its name: %+v", statuses[1])
	}
}

func TestEachCompany_PartialProgress(t *testing.T) {
	save := fixtureSave(t, [][2]string{
		{"somewhere.else", "volvo.ostrava"},
	})
	statuses, err := EachCompany(save, []byte(eachCompanySchema))
	if err != nil {
		t.Fatal(err)
	}
	var volvo *Requirement
	for i := range statuses[0].Requirements {
		if statuses[0].Requirements[i].Name == "volvo.ostrava" {
			volvo = &statuses[0].Requirements[i]
		}
	}
	if volvo == nil || volvo.Status != Started || volvo.Progress != "1/2" {
		t.Fatalf("volvo requirement: %+v", volvo)
	}
}

func TestEachCompany_IgnoresOtherUnits(t *testing.T) {
	schema := `SiiNunit
{
achievement_visit_city_data : .achievement.tourist
{
	achievement_name: tourist
}
}
`
	save := fixtureSave(t, nil)
	statuses, err := EachCompany(save, []byte(schema))
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 0 {
		t.Fatalf("got %d statuses", len(statuses))
	}
}
