// Command report-achievements reads a profile save plus the game's
// def.scs archive and prints delivery-achievement progress, a profile
// summary, and a ranking of cities with chainable job offers.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/calzoneman/siirs/achievements"
	"github.com/calzoneman/siirs/scs"
	"github.com/calzoneman/siirs/sii"
)

const schemaPath = "def/achievements.sii"

func main() {
	var savePath string
	var defPath string
	var localePath string
	var showCities int
	flag.StringVar(&savePath, "save", "", "profile game.sii save file")
	flag.StringVar(&defPath, "def", "", "game def.scs archive (for the achievements schema)")
	flag.StringVar(&localePath, "locale", "", "optional local.sii locale file for display names")
	flag.IntVar(&showCities, "cities", 10, "number of job-market cities to rank (0 disables)")
	flag.Parse()
	log.SetFlags(0)
	if savePath == "" || defPath == "" {
		log.Fatal("-save and -def are required")
	}

	raw, err := os.ReadFile(savePath)
	if err != nil {
		log.Fatalf("read save: %v", err)
	}
	payload, format, err := sii.Unwrap(raw)
	if err != nil {
		log.Fatalf("unwrap save: %v", err)
	}
	if format == sii.FormatText {
		log.Fatal("text-form saves are not supported, convert with g_save_format 2")
	}
	doc, err := sii.Decode(payload, sii.WithLenientMode())
	if err != nil {
		log.Fatalf("decode save: %v", err)
	}
	save := achievements.NewSave(doc)

	schema, err := loadSchema(defPath)
	if err != nil {
		log.Fatalf("load schema: %v", err)
	}

	locale := achievements.EmptyLocaleDB()
	if localePath != "" {
		data, err := os.ReadFile(localePath)
		if err != nil {
			log.Fatalf("read locale: %v", err)
		}
		if locale, err = achievements.LoadLocale(data); err != nil {
			log.Fatalf("load locale: %v", err)
		}
	}

	summary, err := achievements.Summarize(save)
	if err != nil {
		log.Fatalf("summarize: %v", err)
	}
	printSummary(summary)

	statuses, err := achievements.EachCompany(save, schema)
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}
	for _, st := range statuses {
		printStatus(st, locale)
	}

	if showCities > 0 {
		cities, err := achievements.ProfitableCities(save)
		if err != nil {
			log.Fatalf("rank cities: %v", err)
		}
		if len(cities) > showCities {
			cities = cities[:showCities]
		}
		printCities(cities)
	}
}

func loadSchema(defPath string) ([]byte, error) {
	data, err := os.ReadFile(defPath)
	if err != nil {
		return nil, err
	}
	ar, err := scs.Open(data)
	if err != nil {
		return nil, err
	}
	return ar.Extract(scs.PathHash(schemaPath))
}

func printSummary(s achievements.Summary) {
	box("Profile")
	fmt.Printf("  experience      %d XP\n", s.XP)
	fmt.Printf("  distance driven %d km\n", s.DistanceDriven)
	fmt.Printf("  deliveries      %d\n", s.Deliveries)
	fmt.Printf("  cities visited  %d\n", s.CitiesVisited)
	fmt.Printf("  fuel            %d L over %d stops, %d total\n", s.FuelLiters, s.FuelVisits, s.FuelCost)
}

func printStatus(st achievements.Status, locale *achievements.LocaleDB) {
	name := st.Name
	if display, ok := locale.Localize(name); ok {
		name = display
	}
	box(name)
	if st.Unhandled {
		fmt.Println("  (uses source or cargo conditions; not evaluated)")
		return
	}
	for _, req := range st.Requirements {
		mark := " "
		switch req.Status {
		case achievements.Started:
			mark = "~"
		case achievements.Completed:
			mark = "x"
		}
		display := req.Name
		if loc, ok := locale.Localize(req.Name); ok {
			display = loc
		}
		fmt.Printf("  [%s] %-32s %s\n", mark, display, req.Progress)
	}
}

func printCities(cities []achievements.CityScore) {
	box("Job market")
	for i, c := range cities {
		fmt.Printf("  %2d. %-24s %+d\n", i+1, c.City, c.Score)
	}
}

func box(title string) {
	line := strings.Repeat("─", len([]rune(title))+2)
	fmt.Printf("┌%s┐\n│ %s │\n└%s┘\n", line, title, line)
}
