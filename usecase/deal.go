package usecase

import "bargain-backend/model"

// SelectBestDeal picks the cheapest candidate after negotiation. Outcome i
// belongs to candidates[i]; a settled outcome's final price replaces the
// listing, anything else keeps it. Ties go to the earlier candidate. Returns
// nil only when there are no candidates.
func SelectBestDeal(candidates []model.Candidate, outcomes []model.NegotiationOutcome) *model.Deal {
	if len(candidates) == 0 {
		return nil
	}

	best := -1
	var bestPrice float64
	for i, c := range candidates {
		price := resolvedPrice(c, i, outcomes)
		if best < 0 || price < bestPrice {
			best, bestPrice = i, price
		}
	}

	item := candidates[best]
	listed := item.Price
	item.Price = bestPrice
	return &model.Deal{Item: item, Price: bestPrice, ListedPrice: listed}
}

func resolvedPrice(c model.Candidate, i int, outcomes []model.NegotiationOutcome) float64 {
	if i < len(outcomes) && outcomes[i].Success && outcomes[i].FinalPrice != nil {
		return *outcomes[i].FinalPrice
	}
	return c.Price
}
