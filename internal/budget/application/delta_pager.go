package application

import (
	"github.com/mzielinski/BudgetSync/internal/bank"
)

// deltaPager pulls the aggregator's incremental transaction stream one page
// at a time. Each Next fetches from the current cursor; the caller persists
// the page's NextCursor only after the page has been merged, which is what
// makes a crashed sync resumable from the last applied point.
type deltaPager struct {
	gateway     bank.Gateway
	accessToken string
	cursor      string
	page        *bank.DeltaPage
	done        bool
	err         error
}

func newDeltaPager(gateway bank.Gateway, accessToken, cursor string) *deltaPager {
	return &deltaPager{
		gateway:     gateway,
		accessToken: accessToken,
		cursor:      cursor,
	}
}

func (p *deltaPager) Next() bool {
	if p.done || p.err != nil {
		return false
	}
	page, err := p.gateway.SyncDelta(p.accessToken, p.cursor)
	if err != nil {
		p.err = err
		return false
	}
	p.page = page
	p.cursor = page.NextCursor
	if !page.HasMore {
		p.done = true
	}
	return true
}

func (p *deltaPager) Page() *bank.DeltaPage {
	return p.page
}

func (p *deltaPager) Err() error {
	return p.err
}
