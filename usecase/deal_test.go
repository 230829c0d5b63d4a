package usecase

import (
	"testing"

	"bargain-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBestDeal_Empty(t *testing.T) {
	if got := SelectBestDeal(nil, nil); got != nil {
		t.Fatalf("SelectBestDeal() = %+v, want nil", got)
	}
}

func TestSelectBestDeal_UsesSettledPrices(t *testing.T) {
	a, b, c := candidate("a", 1000), candidate("b", 1100), candidate("c", 900)
	outcomes := []model.NegotiationOutcome{settled(a, 790), settled(b, 760), settled(c, 800)}

	deal := SelectBestDeal([]model.Candidate{a, b, c}, outcomes)

	require.NotNil(t, deal)
	assert.Equal(t, b.ID, deal.Item.ID)
	assert.Equal(t, 760.0, deal.Price)
	assert.Equal(t, 760.0, deal.Item.Price)
	assert.Equal(t, 1100.0, deal.ListedPrice)
	assert.Equal(t, 340.0, deal.Saved())
}

func TestSelectBestDeal_FailedKeepsListing(t *testing.T) {
	a, b := candidate("a", 500), candidate("b", 600)
	outcomes := []model.NegotiationOutcome{
		model.FailedOutcome(a, "negotiation timed out"),
		settled(b, 550),
	}

	deal := SelectBestDeal([]model.Candidate{a, b}, outcomes)

	assert.Equal(t, a.ID, deal.Item.ID)
	assert.Equal(t, 500.0, deal.Price)
	assert.Equal(t, 500.0, deal.ListedPrice)
}

func TestSelectBestDeal_UnnegotiatedTail(t *testing.T) {
	a, b, c := candidate("a", 500), candidate("b", 600), candidate("c", 300)
	// only the first two were negotiated
	outcomes := []model.NegotiationOutcome{settled(a, 450), settled(b, 400)}

	deal := SelectBestDeal([]model.Candidate{a, b, c}, outcomes)

	assert.Equal(t, c.ID, deal.Item.ID)
	assert.Equal(t, 300.0, deal.Price)
}

func TestSelectBestDeal_TieGoesToFirst(t *testing.T) {
	a, b := candidate("a", 150), candidate("b", 100)
	outcomes := []model.NegotiationOutcome{settled(a, 100), settled(b, 100)}

	deal := SelectBestDeal([]model.Candidate{a, b}, outcomes)

	assert.Equal(t, a.ID, deal.Item.ID)
	assert.Equal(t, 150.0, deal.ListedPrice)
}

func TestSelectBestDeal_DoesNotMutateInput(t *testing.T) {
	cands := []model.Candidate{candidate("a", 1000)}
	SelectBestDeal(cands, []model.NegotiationOutcome{settled(cands[0], 800)})

	assert.Equal(t, 1000.0, cands[0].Price)
}
