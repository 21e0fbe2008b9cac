package achievements

import (
	"fmt"
	"sort"
	"strings"

	"github.com/calzoneman/siirs/sii"
)

// neverExpires marks placeholder job offers the market keeps around;
// they are not real jobs and are excluded from scoring.
const neverExpires = ^uint32(0)

// CityScore ranks a city by how easy it is to chain jobs through it:
// each open offer with a return job from its destination scores +1,
// each dead-end offer -1.
type CityScore struct {
	City  string
	Score int
}

// ProfitableCities scores every city with open job offers in the save,
// best first. Ties keep a deterministic order (by city name).
func ProfitableCities(save *Save) ([]CityScore, error) {
	offersByCity := make(map[string][]*sii.Instance)

	for _, company := range save.Named("company") {
		city, ok := company.ID.Part(-1)
		if !ok {
			return nil, fmt.Errorf("company %s has no city part", company.ID)
		}
		offerIDs, err := sii.Field[[]sii.ID](company, "job_offer")
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", company.ID, err)
		}
		if _, seen := offersByCity[city]; !seen {
			offersByCity[city] = nil
		}
		for _, offerID := range offerIDs {
			offer, ok := save.ByID(offerID)
			if !ok {
				return nil, fmt.Errorf("company %s references missing offer %s", company.ID, offerID)
			}
			expiration, err := sii.Field[uint32](offer, "expiration_time")
			if err != nil {
				return nil, fmt.Errorf("offer %s: %w", offerID, err)
			}
			if expiration != neverExpires {
				offersByCity[city] = append(offersByCity[city], offer)
			}
		}
	}

	scores := make([]CityScore, 0, len(offersByCity))
	for city, offers := range offersByCity {
		score := 0
		for _, offer := range offers {
			back, err := hasReturnJob(city, offer, offersByCity)
			if err != nil {
				return nil, err
			}
			if back {
				score++
			} else {
				score--
			}
		}
		scores = append(scores, CityScore{City: city, Score: score})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].City < scores[j].City
	})
	return scores, nil
}

// targetCity extracts the destination city from an offer's target
// company reference ("c_navale.ancona" -> "ancona").
func targetCity(offer *sii.Instance) (string, error) {
	target, err := sii.Field[string](offer, "target")
	if err != nil {
		return "", fmt.Errorf("offer %s: %w", offer.ID, err)
	}
	i := strings.LastIndexByte(target, '.')
	if i < 0 || i == len(target)-1 {
		return "", fmt.Errorf("offer %s: malformed target %q", offer.ID, target)
	}
	return target[i+1:], nil
}

func hasReturnJob(origin string, offer *sii.Instance, offersByCity map[string][]*sii.Instance) (bool, error) {
	dest, err := targetCity(offer)
	if err != nil {
		return false, err
	}
	for _, back := range offersByCity[dest] {
		backDest, err := targetCity(back)
		if err != nil {
			return false, err
		}
		if backDest == origin {
			return true, nil
		}
	}
	return false, nil
}
