package domain

// Option is a single answer within a poll. Labels are unique within the
// poll; the counter only ever grows.
type Option struct {
	Label string `json:"option"`
	Votes int64  `json:"votes"`
}

// Poll is the authoritative poll snapshot. Title and options are immutable
// after creation; only vote counters change.
type Poll struct {
	ID        string   `json:"_id"`
	Title     string   `json:"title"`
	Options   []Option `json:"options"`
	CreatorID string   `json:"userId"`
	MetaTags  []string `json:"metaTags,omitempty"`
}

// TotalVotes sums the counters across all options.
func (p *Poll) TotalVotes() int64 {
	if p == nil {
		return 0
	}

	var total int64
	for _, opt := range p.Options {
		total += opt.Votes
	}

	return total
}

// VoteShare returns the percentage of total votes cast for the named
// option. A poll with no votes yields 0 for every option.
func (p *Poll) VoteShare(label string) float64 {
	total := p.TotalVotes()
	if total == 0 {
		return 0
	}

	opt, ok := p.Option(label)
	if !ok {
		return 0
	}

	return float64(opt.Votes) / float64(total) * 100
}

// Option returns the option with the given label, if present.
func (p *Poll) Option(label string) (Option, bool) {
	if p == nil {
		return Option{}, false
	}

	for _, opt := range p.Options {
		if opt.Label == label {
			return opt, true
		}
	}

	return Option{}, false
}

// Clone returns a deep copy of the poll snapshot.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}

	copied := *p
	copied.Options = append([]Option(nil), p.Options...)
	copied.MetaTags = append([]string(nil), p.MetaTags...)
	return &copied
}
