// Package multi composes several corpora into one dataset, re-numbering
// participants and media files so trials can be mixed without collisions.
package multi

import (
	"errors"

	"github.com/aerlab/aerdctl/internal/aer"
)

var ErrNoMembers = errors.New("multi: no member datasets")

// Dataset combines member datasets. Loading assigns cumulative
// participant and media offsets in member order, so identifiers across
// the combined trial collection are unique.
type Dataset struct {
	*aer.Base
	members []aer.Dataset
}

// New builds a multiset over the given members. The signal set is the
// union of member signal sets.
func New(members ...aer.Dataset) (*Dataset, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	var signals []string
	seen := make(map[string]struct{})
	for _, m := range members {
		for _, s := range m.Signals() {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			signals = append(signals, s)
		}
	}
	return &Dataset{
		Base:    aer.NewBase("MultiDataset", "", signals, nil, nil),
		members: members,
	}, nil
}

func (d *Dataset) Preload() error {
	for _, m := range d.members {
		if err := m.Preload(); err != nil {
			return err
		}
	}
	return nil
}

// LoadTrials loads every member with the given filters, then re-numbers:
// each member's participant/media offset is the count of participants and
// media files in the members before it.
func (d *Dataset) LoadTrials(filters ...aer.TrialFilter) error {
	numParticipants := 0
	numMedia := 0
	var trials []aer.Trial
	for _, m := range d.members {
		if err := m.LoadTrials(filters...); err != nil {
			return err
		}
		m.SetParticipantOffset(numParticipants)
		m.SetMediaOffset(numMedia)
		numParticipants += len(m.ParticipantIDs())
		numMedia += len(m.MediaIDs())
		trials = append(trials, m.Trials()...)
	}
	// Members already filtered; keep the concatenation as-is.
	d.SetTrials(trials)
	return nil
}

// MediaName resolves an offset-adjusted media id through the member that
// owns it.
func (d *Dataset) MediaName(mediaID int) (string, bool) {
	for _, m := range d.members {
		if name, ok := m.MediaName(mediaID); ok {
			return name, ok
		}
	}
	return "", false
}

// SignalMetadata prefers metadata set on the multiset, falling back to
// the first member that knows the signal type.
func (d *Dataset) SignalMetadata(signal string) (aer.SignalMetadata, bool) {
	if meta, ok := d.Base.SignalMetadata(signal); ok {
		return meta, true
	}
	for _, m := range d.members {
		if meta, ok := m.SignalMetadata(signal); ok {
			return meta, true
		}
	}
	return aer.SignalMetadata{}, false
}
