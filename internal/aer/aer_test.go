package aer

import (
	"errors"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/aerlab/aerdctl/internal/testutil/testlog"
)

// fakeDataset is an in-memory dataset for exercising base machinery.
type fakeDataset struct {
	*Base
	preloads int
}

func newFakeDataset(t *testing.T, signals []string) *fakeDataset {
	t.Helper()
	return &fakeDataset{
		Base: NewBase("FakeDataset", t.TempDir(), signals, map[string]SignalMetadata{
			"ECG": {SampleRate: 256, Channels: 2},
		}, nil),
	}
}

func (d *fakeDataset) Preload() error {
	needed, err := d.PreloadNeeded()
	if err != nil {
		return err
	}
	if !needed {
		return nil
	}
	d.preloads++
	return d.MarkPreloaded()
}

func (d *fakeDataset) LoadTrials(filters ...TrialFilter) error {
	if err := d.Preload(); err != nil {
		return err
	}
	trials := make([]Trial, 0, 12)
	for p := 1; p <= 6; p++ {
		for m := 1; m <= 2; m++ {
			q := Quadrant((p+m)%4 + 1)
			trials = append(trials, &fakeTrial{ds: d, participant: p, media: m, quad: q})
		}
	}
	d.FinishLoad(trials, filters)
	return nil
}

type fakeTrial struct {
	ds          Dataset
	participant int
	media       int
	quad        Quadrant
}

func (t *fakeTrial) ParticipantID() int          { return t.participant + t.ds.ParticipantOffset() }
func (t *fakeTrial) MediaID() int                { return t.media + t.ds.MediaOffset() }
func (t *fakeTrial) MediaName() string           { return "clip" }
func (t *fakeTrial) ExpectedResponse() Quadrant  { return t.quad }
func (t *fakeTrial) SignalTypes() []string       { return t.ds.Signals() }
func (t *fakeTrial) LoadGroundTruth() (Quadrant, error) {
	return t.quad, nil
}
func (t *fakeTrial) SignalMetadata(signal string) (SignalMetadata, bool) {
	return t.ds.SignalMetadata(signal)
}
func (t *fakeTrial) LoadSignalData(signal string) (*mat.Dense, error) {
	return mat.NewDense(2, 4, nil), nil
}
func (t *fakeTrial) LoadPreprocessedSignalData(signal string) (*mat.Dense, error) {
	return t.LoadSignalData(signal)
}

func TestQuadrantFromScores(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		valence, arousal float64
		want             Quadrant
	}{
		{4, 4, QuadrantHAHV},
		{2, 4, QuadrantHALV},
		{2, 2, QuadrantLALV},
		{4, 2, QuadrantLAHV},
		{3, 3, QuadrantHAHV}, // midpoint counts as high
	}
	for _, tc := range cases {
		if got := QuadrantFromScores(tc.valence, tc.arousal, 3, 3); got != tc.want {
			t.Fatalf("v=%v a=%v: got %d want %d", tc.valence, tc.arousal, got, tc.want)
		}
	}
}

func TestPreloadRunsOnceAndHonorsSubset(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG", "EEG"})
	if err := ds.Preload(); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if err := ds.Preload(); err != nil {
		t.Fatalf("second preload: %v", err)
	}
	if ds.preloads != 1 {
		t.Fatalf("preload ran %d times, want 1", ds.preloads)
	}

	// A fresh instance over the same working dir with a signal subset
	// must not preload again.
	subset := &fakeDataset{Base: NewBase("FakeDataset", ds.workRoot, []string{"ECG"}, nil, nil)}
	if err := subset.Preload(); err != nil {
		t.Fatalf("subset preload: %v", err)
	}
	if subset.preloads != 0 {
		t.Fatalf("subset preload ran %d times, want 0", subset.preloads)
	}

	// A new signal type forces another preload.
	wider := &fakeDataset{Base: NewBase("FakeDataset", ds.workRoot, []string{"ECG", "GSR"}, nil, nil)}
	if err := wider.Preload(); err != nil {
		t.Fatalf("wider preload: %v", err)
	}
	if wider.preloads != 1 {
		t.Fatalf("wider preload ran %d times, want 1", wider.preloads)
	}
}

func TestWorkingPathValidation(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG"})

	if _, err := ds.WorkingPath(PathSpec{TrialMediaID: 3}); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath for media without participant, got %v", err)
	}
	if _, err := ds.WorkingPath(PathSpec{Signal: "ECG"}); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath for signal without media, got %v", err)
	}
	if _, err := ds.WorkingPath(PathSpec{DatasetParticipantID: 1, DatasetMediaID: 2, Signal: "EEG"}); !errors.Is(err, ErrUnknownSignal) {
		t.Fatalf("expected ErrUnknownSignal, got %v", err)
	}

	path, err := ds.WorkingPath(PathSpec{DatasetParticipantID: 1, DatasetMediaID: 2, Signal: "ECG", Baseline: true})
	if err != nil {
		t.Fatalf("working path: %v", err)
	}
	wantSuffix := "Participant_01/Media_02/ECG_baseline.npy"
	if len(path) < len(wantSuffix) || path[len(path)-len(wantSuffix):] != wantSuffix {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestWorkingPathAppliesOffsets(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG"})
	ds.SetParticipantOffset(50)
	ds.SetMediaOffset(30)

	path, err := ds.WorkingPath(PathSpec{TrialParticipantID: 51, TrialMediaID: 32, Signal: "ECG"})
	if err != nil {
		t.Fatalf("working path: %v", err)
	}
	wantSuffix := "Participant_01/Media_02/ECG_stimuli.npy"
	if path[len(path)-len(wantSuffix):] != wantSuffix {
		t.Fatalf("offsets not mapped to native ids: %q", path)
	}
}

func TestTrialSplitsAreParticipantDisjoint(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG"})
	if err := ds.LoadTrials(); err != nil {
		t.Fatalf("load trials: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	splits, err := TrialSplits(ds, []float64{0.7, 0.3}, rng)
	if err != nil {
		t.Fatalf("splits: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(splits))
	}
	if len(splits[0])+len(splits[1]) != len(ds.Trials()) {
		t.Fatalf("splits do not partition trials: %d + %d != %d",
			len(splits[0]), len(splits[1]), len(ds.Trials()))
	}

	first := make(map[int]struct{})
	for _, tr := range splits[0] {
		first[tr.ParticipantID()] = struct{}{}
	}
	for _, tr := range splits[1] {
		if _, ok := first[tr.ParticipantID()]; ok {
			t.Fatalf("participant %d appears in both splits", tr.ParticipantID())
		}
	}
}

func TestTrialSplitsThreeWay(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG"})
	if err := ds.LoadTrials(); err != nil {
		t.Fatalf("load trials: %v", err)
	}
	rng := rand.New(rand.NewSource(7))
	splits, err := TrialSplits(ds, []float64{0.7, 0.15, 0.15}, rng)
	if err != nil {
		t.Fatalf("splits: %v", err)
	}
	total := 0
	for _, s := range splits {
		total += len(s)
	}
	if total != len(ds.Trials()) {
		t.Fatalf("three-way split lost trials: %d != %d", total, len(ds.Trials()))
	}
}

func TestTrialSplitsRejectBadFractions(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG"})
	if err := ds.LoadTrials(); err != nil {
		t.Fatalf("load trials: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	if _, err := TrialSplits(ds, []float64{0.5, 0.3}, rng); !errors.Is(err, ErrInvalidFractions) {
		t.Fatalf("expected ErrInvalidFractions, got %v", err)
	}
}

func TestLoadTrialsAppliesFilters(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG"})
	err := ds.LoadTrials(func(tr Trial) bool {
		return tr.ParticipantID() <= 3
	})
	if err != nil {
		t.Fatalf("load trials: %v", err)
	}
	for _, tr := range ds.Trials() {
		if tr.ParticipantID() > 3 {
			t.Fatalf("filter leak: participant %d", tr.ParticipantID())
		}
	}
	if len(ds.Trials()) != 6 {
		t.Fatalf("expected 6 trials after filter, got %d", len(ds.Trials()))
	}
}

func TestBalancedTrialsEqualizesQuadrants(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG"})
	if err := ds.LoadTrials(); err != nil {
		t.Fatalf("load trials: %v", err)
	}
	rng := rand.New(rand.NewSource(3))

	set, err := BalancedTrials(ds, true, false, rng)
	if err != nil {
		t.Fatalf("balanced: %v", err)
	}
	counts := make(map[Quadrant]int)
	for _, tr := range set.Trials() {
		q, err := tr.LoadGroundTruth()
		if err != nil {
			t.Fatalf("ground truth: %v", err)
		}
		counts[q]++
	}
	want := counts[QuadrantHAHV]
	for q := QuadrantHAHV; q <= QuadrantLAHV; q++ {
		if counts[q] != want {
			t.Fatalf("quadrant %d has %d trials, want %d", q, counts[q], want)
		}
	}
}

func TestBalancedTrialsEmptyQuadrant(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG"})
	trials := []Trial{
		&fakeTrial{ds: ds, participant: 1, media: 1, quad: QuadrantHAHV},
		&fakeTrial{ds: ds, participant: 1, media: 2, quad: QuadrantHAHV},
		&fakeTrial{ds: ds, participant: 2, media: 1, quad: QuadrantHALV},
		&fakeTrial{ds: ds, participant: 2, media: 2, quad: QuadrantLALV},
	}
	ds.FinishLoad(trials, nil)
	rng := rand.New(rand.NewSource(5))

	if _, err := BalancedTrials(ds, true, false, rng); !errors.Is(err, ErrEmptyQuadrant) {
		t.Fatalf("expected ErrEmptyQuadrant when oversampling, got %v", err)
	}

	// Undersampling takes the minimum over all four quadrants, so an
	// empty quadrant yields an empty balanced set.
	set, err := BalancedTrials(ds, false, false, rng)
	if err != nil {
		t.Fatalf("undersampled balanced: %v", err)
	}
	if len(set.Trials()) != 0 {
		t.Fatalf("expected empty undersampled set, got %d trials", len(set.Trials()))
	}

	if _, err := InterleavedTrials(ds, false, rng); !errors.Is(err, ErrEmptyQuadrant) {
		t.Fatalf("expected ErrEmptyQuadrant for interleave, got %v", err)
	}
}

func TestInterleavedTrialsRotateQuadrants(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG"})
	if err := ds.LoadTrials(); err != nil {
		t.Fatalf("load trials: %v", err)
	}
	rng := rand.New(rand.NewSource(3))

	set, err := InterleavedTrials(ds, false, rng)
	if err != nil {
		t.Fatalf("interleaved: %v", err)
	}
	trials := set.Trials()
	if len(trials)%4 != 0 {
		t.Fatalf("interleaved size %d not a multiple of 4", len(trials))
	}
	seen := make(map[Quadrant]struct{}, 4)
	for i := 0; i < 4; i++ {
		q, _ := trials[i].LoadGroundTruth()
		seen[q] = struct{}{}
	}
	if len(seen) != 4 {
		t.Fatalf("first four trials cover %d quadrants, want 4", len(seen))
	}
}

func TestTrialSetInheritsMetadataAndNames(t *testing.T) {
	testlog.Start(t)
	ds := newFakeDataset(t, []string{"ECG"})
	if err := ds.LoadTrials(); err != nil {
		t.Fatalf("load trials: %v", err)
	}
	set := NewTrialSet("fake-view", ds, ds.Trials())

	if meta, ok := set.SignalMetadata("ECG"); !ok || meta.SampleRate != 256 {
		t.Fatalf("signal metadata not inherited: ok=%v meta=%+v", ok, meta)
	}
	if name, ok := set.MediaName(1); !ok || name != "clip" {
		t.Fatalf("media name not inferred: ok=%v name=%q", ok, name)
	}
	if len(set.Trials()) != len(ds.Trials()) {
		t.Fatalf("trial count mismatch")
	}
}

func TestRegistryRegisterResolveAndDuplicate(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	meta := Metadata{ID: "dataset.fake", Name: "Fake", Description: "In-memory fixture"}
	factory := func() (Dataset, error) {
		return &fakeDataset{Base: NewBase("FakeDataset", t.TempDir(), []string{"ECG"}, nil, nil)}, nil
	}

	if err := r.Register(meta, factory); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(meta, factory); !errors.Is(err, ErrDatasetExists) {
		t.Fatalf("expected ErrDatasetExists, got %v", err)
	}
	ds, err := r.Resolve("dataset.fake")
	if err != nil || ds.Name() != "FakeDataset" {
		t.Fatalf("resolve failed: ds=%v err=%v", ds, err)
	}
	if _, err := r.Resolve("dataset.missing"); !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestRegistryValidateMetadataFailures(t *testing.T) {
	testlog.Start(t)
	cases := []Metadata{
		{ID: "", Name: "Fake", Description: "x"},
		{ID: "dataset.fake", Name: "", Description: "x"},
		{ID: "dataset.fake", Name: "Fake", Description: ""},
		{ID: "Dataset.Fake", Name: "Fake", Description: "x"},
		{ID: ".dataset", Name: "Fake", Description: "x"},
		{ID: "data..set", Name: "Fake", Description: "x"},
	}
	for _, meta := range cases {
		if err := ValidateMetadata(meta); !errors.Is(err, ErrInvalidMetadata) {
			t.Fatalf("expected ErrInvalidMetadata for %+v, got %v", meta, err)
		}
	}
}
