package erp

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

// Source exposes one company of the ERP as a schedule partition. Open
// deals are the invoices; partners are the counterparty directory.
type Source struct {
	client    *Client
	companyID int64
}

// NewSource creates a Source for companyID.
func NewSource(client *Client, companyID int64) *Source {
	return &Source{client: client, companyID: companyID}
}

// ReadEvents returns the company's unsettled deals. The remaining due
// amount is used when the API reports one; fully settled deals are left
// out.
func (s *Source) ReadEvents(ctx context.Context) ([]schedule.PartitionEvent, error) {
	params := url.Values{}
	params.Set("status", "unsettled")

	deals, err := s.client.FetchAllDeals(ctx, s.companyID, params)
	if err != nil {
		return nil, err
	}

	events := make([]schedule.PartitionEvent, 0, len(deals))
	for _, d := range deals {
		amount := d.Amount
		if d.DueAmount != nil {
			amount = *d.DueAmount
		}
		if amount == 0 {
			continue
		}

		base, err := schedule.ParseDay(d.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("deal %d: invalid issue date %q: %w", d.ID, d.IssueDate, err)
		}

		var partnerRef int64
		if d.PartnerID != nil {
			partnerRef = *d.PartnerID
		}

		events = append(events, schedule.PartitionEvent{
			CounterpartyRef: partnerRef,
			BaseDate:        base,
			Amount:          decimal.NewFromInt(amount),
			Reference:       dealReference(d),
		})
	}

	return events, nil
}

// Counterparties maps partner ids to partner codes. Partners without a
// code are left out.
func (s *Source) Counterparties(ctx context.Context) (map[int64]string, error) {
	partners, err := s.client.ListPartners(ctx, s.companyID)
	if err != nil {
		return nil, err
	}

	directory := make(map[int64]string, len(partners))
	for _, p := range partners {
		if p.Code == nil || *p.Code == "" {
			continue
		}
		directory[p.ID] = *p.Code
	}
	return directory, nil
}

func dealReference(d Deal) string {
	if d.RefNumber != nil && *d.RefNumber != "" {
		return *d.RefNumber
	}
	return "deal-" + strconv.FormatInt(d.ID, 10)
}
