package achievements

import "github.com/calzoneman/siirs/sii"

// Summary is the headline progress of one profile, pulled from the
// economy and delivery_log units.
type Summary struct {
	FuelLiters     uint32
	FuelCost       int64
	FuelVisits     uint32
	XP             uint32
	DistanceDriven uint32
	CitiesVisited  int
	Deliveries     int
}

func Summarize(s *Save) (Summary, error) {
	econ, err := s.SingleNamed("economy")
	if err != nil {
		return Summary{}, err
	}
	dlog, err := s.SingleNamed("delivery_log")
	if err != nil {
		return Summary{}, err
	}

	var out Summary
	if out.FuelLiters, err = sii.Field[uint32](econ, "total_fuel_litres"); err != nil {
		return Summary{}, err
	}
	if out.FuelCost, err = sii.Field[int64](econ, "total_fuel_price"); err != nil {
		return Summary{}, err
	}
	if out.FuelVisits, err = sii.Field[uint32](econ, "gas_station_visit_count"); err != nil {
		return Summary{}, err
	}
	if out.XP, err = sii.Field[uint32](econ, "experience_points"); err != nil {
		return Summary{}, err
	}
	if out.DistanceDriven, err = sii.Field[uint32](econ, "total_distance"); err != nil {
		return Summary{}, err
	}
	cities, err := sii.Field[[]sii.Token](econ, "visited_cities")
	if err != nil {
		return Summary{}, err
	}
	out.CitiesVisited = len(cities)
	entries, err := sii.Field[[]sii.ID](dlog, "entries")
	if err != nil {
		return Summary{}, err
	}
	out.Deliveries = len(entries)
	return out, nil
}
