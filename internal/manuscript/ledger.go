package manuscript

// CharacterRecord tracks one character across the manuscript.
type CharacterRecord struct {
	FirstMention string   `json:"first_mention,omitempty"`
	Appearances  []string `json:"appearances,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
}

// LocationRecord tracks one location.
type LocationRecord struct {
	FirstMention string   `json:"first_mention,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
}

// TimelineEvent is one ordered event in the manuscript timeline.
type TimelineEvent struct {
	Event     string `json:"event"`
	Chapter   string `json:"chapter,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// TermRecord tracks one piece of invented or specialized terminology.
type TermRecord struct {
	Definition string   `json:"definition,omitempty"`
	Variants   []string `json:"variants,omitempty"`
}

// Ledger is the long-lived continuity record of a manuscript: characters,
// locations, timeline, and terminology. It is mutated only by the continuity
// stage and read by later stages and callers.
type Ledger struct {
	Characters  map[string]CharacterRecord `json:"characters"`
	Locations   map[string]LocationRecord  `json:"locations"`
	Timeline    []TimelineEvent            `json:"timeline"`
	Terminology map[string]TermRecord      `json:"terminology"`
}

// NewLedger creates an empty ledger.
func NewLedger() Ledger {
	return Ledger{
		Characters:  make(map[string]CharacterRecord),
		Locations:   make(map[string]LocationRecord),
		Terminology: make(map[string]TermRecord),
	}
}

// LedgerDelta carries continuity findings from one stage run, keyed the same
// way as the ledger itself.
type LedgerDelta struct {
	Characters  map[string]CharacterRecord
	Locations   map[string]LocationRecord
	Timeline    []TimelineEvent
	Terminology map[string]TermRecord
}

// Empty reports whether the delta carries nothing.
func (d *LedgerDelta) Empty() bool {
	return len(d.Characters) == 0 && len(d.Locations) == 0 &&
		len(d.Timeline) == 0 && len(d.Terminology) == 0
}

// Merge folds a delta into the ledger. Entries matching an existing name are
// updated in place: aliases, appearances, descriptions, and variants are
// appended (deduplicated), never replaced. Non-matching names are inserted.
// Timeline events are appended unless an identical event/chapter pair is
// already recorded.
func (l *Ledger) Merge(delta LedgerDelta) {
	if l.Characters == nil {
		l.Characters = make(map[string]CharacterRecord)
	}
	if l.Locations == nil {
		l.Locations = make(map[string]LocationRecord)
	}
	if l.Terminology == nil {
		l.Terminology = make(map[string]TermRecord)
	}

	for name, incoming := range delta.Characters {
		existing, ok := l.Characters[name]
		if !ok {
			l.Characters[name] = incoming
			continue
		}
		if existing.FirstMention == "" {
			existing.FirstMention = incoming.FirstMention
		}
		existing.Appearances = appendMissing(existing.Appearances, incoming.Appearances)
		existing.Aliases = appendMissing(existing.Aliases, incoming.Aliases)
		l.Characters[name] = existing
	}

	for name, incoming := range delta.Locations {
		existing, ok := l.Locations[name]
		if !ok {
			l.Locations[name] = incoming
			continue
		}
		if existing.FirstMention == "" {
			existing.FirstMention = incoming.FirstMention
		}
		existing.Descriptions = appendMissing(existing.Descriptions, incoming.Descriptions)
		l.Locations[name] = existing
	}

	for _, event := range delta.Timeline {
		if !l.hasTimelineEvent(event) {
			l.Timeline = append(l.Timeline, event)
		}
	}

	for term, incoming := range delta.Terminology {
		existing, ok := l.Terminology[term]
		if !ok {
			l.Terminology[term] = incoming
			continue
		}
		if existing.Definition == "" {
			existing.Definition = incoming.Definition
		}
		existing.Variants = appendMissing(existing.Variants, incoming.Variants)
		l.Terminology[term] = existing
	}
}

func (l *Ledger) hasTimelineEvent(event TimelineEvent) bool {
	for _, e := range l.Timeline {
		if e.Event == event.Event && e.Chapter == event.Chapter {
			return true
		}
	}
	return false
}

func appendMissing(existing, incoming []string) []string {
	for _, item := range incoming {
		found := false
		for _, have := range existing {
			if have == item {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, item)
		}
	}
	return existing
}
