package speech_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/murmur/speech"
	"github.com/dgnsrekt/murmur/speech/engines/mock"
)

// recorder collects controller notifications.
type recorder struct {
	mu        sync.Mutex
	snapshots []speech.Snapshot
	errs      []error
}

func (r *recorder) attach(c *speech.Controller) {
	c.OnChange(func(s speech.Snapshot) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.snapshots = append(r.snapshots, s)
	})
	c.OnError(func(err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.errs = append(r.errs, err)
	})
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func newController(t *testing.T, opts ...speech.Option) (*speech.Controller, *mock.Engine, *recorder) {
	t.Helper()
	engine := mock.New()
	opts = append([]speech.Option{speech.WithHostLanguage("")}, opts...)
	c := speech.NewController(engine, opts...)
	rec := &recorder{}
	rec.attach(c)
	return c, engine, rec
}

func assertIdle(t *testing.T, c *speech.Controller) {
	t.Helper()
	s := c.Snapshot()
	if s.State != speech.StateIdle {
		t.Errorf("Expected state idle, got %s", s.State)
	}
	if s.Boundary != nil {
		t.Errorf("Expected no boundary, got %+v", s.Boundary)
	}
	if s.Text != "" {
		t.Errorf("Expected no active utterance, got text %q", s.Text)
	}
	if s.Progress != 0 {
		t.Errorf("Expected progress 0, got %v", s.Progress)
	}
}

func TestSpeakEmptyText(t *testing.T) {
	c, engine, _ := newController(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		err := c.Speak(speech.Request{Text: text, Rate: 1, Pitch: 1})
		if !errors.Is(err, speech.ErrEmptyText) {
			t.Errorf("Expected ErrEmptyText for %q, got %v", text, err)
		}
	}

	if engine.Last() != nil {
		t.Error("Expected engine not to be called")
	}
	assertIdle(t, c)
}

func TestLifecycle(t *testing.T) {
	c, engine, _ := newController(t)

	if err := c.Speak(speech.Request{Text: "hello brave world", Rate: 1, Pitch: 1}); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if got := c.Snapshot().State; got != speech.StateSpeaking {
		t.Fatalf("Expected speaking after Speak, got %s", got)
	}

	engine.Start()
	engine.Boundary(6, 5)
	s := c.Snapshot()
	if s.Boundary == nil || s.Boundary.CharIndex != 6 {
		t.Fatalf("Expected boundary at 6, got %+v", s.Boundary)
	}
	if s.Progress <= 0 || s.Progress >= 100 {
		t.Errorf("Expected progress between 0 and 100, got %v", s.Progress)
	}

	c.Pause()
	if got := c.Snapshot().State; got != speech.StatePaused {
		t.Fatalf("Expected paused, got %s", got)
	}

	c.Resume()
	if got := c.Snapshot().State; got != speech.StateSpeaking {
		t.Fatalf("Expected speaking after resume, got %s", got)
	}

	engine.End()
	assertIdle(t, c)
}

func TestBoundaryUnits(t *testing.T) {
	c, engine, _ := newController(t)
	if err := c.Speak(speech.Request{Text: "hello brave new world", Rate: 1, Pitch: 1}); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	engine.Start()
	u := engine.Last()

	u.NotifyBoundary(speech.BoundaryEvent{CharIndex: 12, CharLength: 3, Unit: "mark"})
	if s := c.Snapshot(); s.Boundary != nil || s.Progress != 0 {
		t.Errorf("Expected mark boundary to be ignored, got %+v progress=%v", s.Boundary, s.Progress)
	}

	u.NotifyBoundary(speech.BoundaryEvent{CharIndex: 6, CharLength: 15, Unit: speech.UnitSentence})
	if s := c.Snapshot(); s.Boundary == nil || s.Boundary.Unit != speech.UnitSentence || s.Boundary.CharIndex != 6 {
		t.Errorf("Expected sentence boundary at 6, got %+v", s.Boundary)
	}

	u.NotifyBoundary(speech.BoundaryEvent{CharIndex: 18, CharLength: 1, Unit: ""})
	if s := c.Snapshot(); s.Boundary == nil || s.Boundary.CharIndex != 6 {
		t.Errorf("Expected unitless boundary to be ignored, got %+v", s.Boundary)
	}
}

func TestPauseAndResumeAreNoOpsWhenNotApplicable(t *testing.T) {
	c, engine, _ := newController(t)

	c.Pause()
	c.Resume()
	if _, pauses, resumes := engine.Counts(); pauses != 0 || resumes != 0 {
		t.Errorf("Expected no engine pause/resume while idle, got %d/%d", pauses, resumes)
	}

	if err := c.Speak(speech.Request{Text: "one two", Rate: 1, Pitch: 1}); err != nil {
		t.Fatal(err)
	}
	c.Resume()
	c.Pause()
	c.Pause()
	if _, pauses, resumes := engine.Counts(); pauses != 1 || resumes != 0 {
		t.Errorf("Expected exactly one pause and no resume, got %d/%d", pauses, resumes)
	}
}

func TestCancelIgnoresLateCallbacks(t *testing.T) {
	states := []struct {
		name  string
		setup func(c *speech.Controller, e *mock.Engine)
	}{
		{"idle", func(c *speech.Controller, e *mock.Engine) {}},
		{"speaking", func(c *speech.Controller, e *mock.Engine) {
			_ = c.Speak(speech.Request{Text: "some words here", Rate: 1, Pitch: 1})
			e.Start()
			e.Boundary(5, 5)
		}},
		{"paused", func(c *speech.Controller, e *mock.Engine) {
			_ = c.Speak(speech.Request{Text: "some words here", Rate: 1, Pitch: 1})
			e.Start()
			c.Pause()
		}},
	}

	for _, tt := range states {
		t.Run(tt.name, func(t *testing.T) {
			c, engine, rec := newController(t)
			tt.setup(c, engine)
			u := engine.Last()

			c.Cancel()
			assertIdle(t, c)

			if u == nil {
				return
			}
			// Late callbacks for the canceled utterance.
			u.NotifyStart()
			u.NotifyBoundary(speech.BoundaryEvent{CharIndex: 10, CharLength: 4, Unit: speech.UnitWord})
			u.NotifyResume()
			u.NotifyEnd()
			u.NotifyError(speech.ErrInterrupted)

			assertIdle(t, c)
			if errs := rec.errors(); len(errs) != 0 {
				t.Errorf("Expected stale error to be dropped, got %v", errs)
			}
		})
	}
}

func TestSpeakCancelsActiveUtterance(t *testing.T) {
	c, engine, _ := newController(t)

	if err := c.Speak(speech.Request{Text: "first utterance text", Rate: 1, Pitch: 1}); err != nil {
		t.Fatal(err)
	}
	engine.Start()
	first := engine.Last()

	if err := c.Speak(speech.Request{Text: "second", Rate: 1, Pitch: 1}); err != nil {
		t.Fatal(err)
	}
	second := engine.Last()
	if first == second {
		t.Fatal("Expected a new utterance")
	}
	if second.Generation <= first.Generation {
		t.Errorf("Expected generation to increase, got %d then %d", first.Generation, second.Generation)
	}
	if cancels, _, _ := engine.Counts(); cancels != 1 {
		t.Errorf("Expected previous utterance to be canceled once, got %d", cancels)
	}

	// Boundaries from the first utterance must not leak into the second.
	first.NotifyBoundary(speech.BoundaryEvent{CharIndex: 12, CharLength: 4, Unit: speech.UnitWord})
	first.NotifyEnd()

	s := c.Snapshot()
	if s.State != speech.StateSpeaking {
		t.Errorf("Expected second utterance to keep speaking, got %s", s.State)
	}
	if s.Boundary != nil {
		t.Errorf("Expected no boundary from the first utterance, got %+v", s.Boundary)
	}
	if s.Text != "second" {
		t.Errorf("Expected active text %q, got %q", "second", s.Text)
	}
}

func TestAtMostOneUtteranceActive(t *testing.T) {
	c, engine, _ := newController(t)

	for i := 0; i < 20; i++ {
		if err := c.Speak(speech.Request{Text: "a b c d e f", Rate: 1, Pitch: 1}); err != nil {
			t.Fatal(err)
		}
		engine.Start()
		if got, want := c.Snapshot().Generation, engine.Last().Generation; got != want {
			t.Fatalf("Expected controller generation %d, got %d", want, got)
		}
	}
	if cancels, _, _ := engine.Counts(); cancels != 19 {
		t.Errorf("Expected every earlier utterance to be canceled, got %d cancels", cancels)
	}

	// Callbacks from every earlier utterance are ignored.
	spoken := engine.Spoken()
	last := spoken[len(spoken)-1]
	for _, u := range spoken[:len(spoken)-1] {
		u.NotifyEnd()
		u.NotifyError(speech.ErrNetwork)
	}

	s := c.Snapshot()
	if s.State != speech.StateSpeaking {
		t.Errorf("Expected the last utterance to keep speaking, got %s", s.State)
	}
	if s.Generation != last.Generation {
		t.Errorf("Expected generation %d, got %d", last.Generation, s.Generation)
	}
}

func TestErrorCategoriesAllResetToIdle(t *testing.T) {
	for _, category := range speech.Categories() {
		t.Run(string(category), func(t *testing.T) {
			c, engine, rec := newController(t)
			if err := c.Speak(speech.Request{Text: "words to say", Rate: 1, Pitch: 1}); err != nil {
				t.Fatal(err)
			}
			engine.Start()
			engine.Boundary(6, 2)

			engine.Fail(category.Err())
			assertIdle(t, c)

			errs := rec.errors()
			if len(errs) != 1 {
				t.Fatalf("Expected one reported error, got %d", len(errs))
			}
			var serr *speech.SynthesisError
			if !errors.As(errs[0], &serr) {
				t.Fatalf("Expected *SynthesisError, got %T", errs[0])
			}
			if serr.Category != category {
				t.Errorf("Expected category %s, got %s", category, serr.Category)
			}
		})
	}
}

func TestSpeakErrorResetsToIdle(t *testing.T) {
	c, engine, rec := newController(t)
	engine.SetSpeakError(speech.ErrTextTooLong)

	if err := c.Speak(speech.Request{Text: "too long", Rate: 1, Pitch: 1}); err != nil {
		t.Fatalf("Expected engine failure to be reported asynchronously, got %v", err)
	}
	assertIdle(t, c)

	errs := rec.errors()
	if len(errs) != 1 || speech.Classify(errs[0]) != speech.CategoryTextTooLong {
		t.Errorf("Expected one text-too-long error, got %v", errs)
	}
}

func TestReconcile(t *testing.T) {
	t.Run("engine stopped silently", func(t *testing.T) {
		c, engine, _ := newController(t)
		_ = c.Speak(speech.Request{Text: "hello there", Rate: 1, Pitch: 1})
		engine.Start()
		engine.Boundary(6, 5)

		engine.Halt()
		c.Reconcile()
		assertIdle(t, c)
	})

	t.Run("engine paused without event", func(t *testing.T) {
		c, engine, _ := newController(t)
		_ = c.Speak(speech.Request{Text: "hello there", Rate: 1, Pitch: 1})
		engine.SetFlags(true, true)
		c.Reconcile()
		if got := c.Snapshot().State; got != speech.StatePaused {
			t.Errorf("Expected paused, got %s", got)
		}

		engine.SetFlags(true, false)
		c.Reconcile()
		if got := c.Snapshot().State; got != speech.StateSpeaking {
			t.Errorf("Expected speaking, got %s", got)
		}
	})

	t.Run("no active utterance", func(t *testing.T) {
		c, engine, rec := newController(t)
		engine.SetFlags(true, false)
		c.Reconcile()
		assertIdle(t, c)
		if len(rec.snapshots) != 0 {
			t.Errorf("Expected no notifications, got %d", len(rec.snapshots))
		}
	})

	t.Run("agreement is a no-op", func(t *testing.T) {
		c, _, rec := newController(t)
		_ = c.Speak(speech.Request{Text: "hello", Rate: 1, Pitch: 1})
		before := len(rec.snapshots)
		c.Reconcile()
		if len(rec.snapshots) != before {
			t.Error("Expected no notification when state agrees with engine")
		}
	})
}

func TestRunReconcilesPeriodically(t *testing.T) {
	c, engine, _ := newController(t, speech.WithReconcileInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	_ = c.Speak(speech.Request{Text: "hello", Rate: 1, Pitch: 1})
	engine.Halt()

	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot().State != speech.StateIdle {
		if time.Now().After(deadline) {
			t.Fatal("Expected reconciliation to reach idle")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSpeakResolvesVoiceAndLanguage(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		voiceID  string
		wantID   string
		wantLang string
	}{
		{"known voice", "de-DE", "mock-fr", "mock-fr", "fr-FR"},
		{"unknown voice uses host", "de-DE", "missing", "", "de-DE"},
		{"no voice no host", "", "", "", speech.FallbackLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := mock.New()
			c := speech.NewController(engine, speech.WithHostLanguage(tt.host))
			if err := c.Speak(speech.Request{Text: "bonjour", VoiceID: tt.voiceID, Rate: 1, Pitch: 1}); err != nil {
				t.Fatal(err)
			}
			u := engine.Last()
			if u.VoiceID() != tt.wantID {
				t.Errorf("Expected voice %q, got %q", tt.wantID, u.VoiceID())
			}
			if u.Lang != tt.wantLang {
				t.Errorf("Expected language %q, got %q", tt.wantLang, u.Lang)
			}
		})
	}
}

func TestSpeakUsesLiveVoiceList(t *testing.T) {
	engine := mock.New(mock.WithVoices())
	catalog := speech.NewCatalog(engine)
	c := speech.NewController(engine)

	// The catalog is stale: the engine gains a voice without notifying.
	late := speech.Voice{Name: "Late", Lang: "it-IT", ID: "late"}
	voicesWithoutNotify(engine, late)

	if len(catalog.Voices()) != 0 {
		t.Fatal("Expected the catalog to be stale")
	}
	_ = c.Speak(speech.Request{Text: "ciao", VoiceID: "late", Rate: 1, Pitch: 1})
	if got := engine.Last().VoiceID(); got != "late" {
		t.Errorf("Expected live lookup to find %q, got %q", "late", got)
	}
}

// voicesWithoutNotify sets voices with the change notification detached.
func voicesWithoutNotify(engine *mock.Engine, voices ...speech.Voice) {
	engine.OnVoicesChanged(nil)
	engine.SetVoices(voices...)
}

func TestSpeakClampsRateAndPitch(t *testing.T) {
	c, engine, _ := newController(t)
	_ = c.Speak(speech.Request{Text: "fast", Rate: 42, Pitch: -3})

	u := engine.Last()
	if u.Rate != speech.MaxRate {
		t.Errorf("Expected rate %v, got %v", speech.MaxRate, u.Rate)
	}
	if u.Pitch != speech.MinPitch {
		t.Errorf("Expected pitch %v, got %v", speech.MinPitch, u.Pitch)
	}
}

func TestNilEngine(t *testing.T) {
	c := speech.NewController(nil)
	catalog := speech.NewCatalog(nil)

	if err := c.Speak(speech.Request{Text: "hello", Rate: 1, Pitch: 1}); !errors.Is(err, speech.ErrNoEngine) {
		t.Errorf("Expected ErrNoEngine, got %v", err)
	}
	c.Pause()
	c.Resume()
	c.Cancel()
	c.Reconcile()

	assertIdle(t, c)
	if c.Available() {
		t.Error("Expected controller without engine to be unavailable")
	}
	if len(catalog.Voices()) != 0 {
		t.Error("Expected empty catalog")
	}
}

func TestAutoPlayRunsToCompletion(t *testing.T) {
	engine := mock.New(mock.WithAutoPlay(time.Millisecond))
	c := speech.NewController(engine)

	done := make(chan struct{})
	var once sync.Once
	c.OnChange(func(s speech.Snapshot) {
		if s.State == speech.StateIdle {
			once.Do(func() { close(done) })
		}
	})

	if err := c.Speak(speech.Request{Text: "one two three", Rate: 1, Pitch: 1}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected utterance to finish")
	}
	assertIdle(t, c)
}
