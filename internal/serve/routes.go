package serve

import (
	"errors"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aerlab/aerdctl/internal/aer"
	"github.com/aerlab/aerdctl/internal/auth"
)

func (s *Service) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.appeared).String(),
			"component": "dataset-api",
			"version":   serviceVersion,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":     true,
			"uptime":    time.Since(s.appeared).String(),
			"component": "dataset-api",
			"version":   serviceVersion,
		})
	})

	datasets := s.router.Group("/datasets")
	if token := strings.TrimSpace(s.opts.AuthToken); token != "" {
		datasets.Use(bearerAuth(auth.StaticToken{Token: token}))
	}

	datasets.GET("", func(c *gin.Context) {
		metas := s.registry.ListMetadata()
		list := make([]gin.H, 0, len(metas))
		for _, m := range metas {
			list = append(list, gin.H{
				"id":          m.ID,
				"name":        m.Name,
				"description": m.Description,
			})
		}
		c.JSON(http.StatusOK, gin.H{"datasets": list})
	})

	datasets.GET("/:id", s.handleSummary)
	datasets.GET("/:id/trials", s.handleTrials)
	datasets.GET("/:id/splits", s.handleSplits)
	datasets.GET("/:id/trials/:participant/:media/signals/:signal", s.handleSignal)
}

func (s *Service) handleSummary(c *gin.Context) {
	ds, ok := s.resolve(c)
	if !ok {
		return
	}

	signals := gin.H{}
	for _, sig := range ds.Signals() {
		if meta, ok := ds.SignalMetadata(sig); ok {
			signals[sig] = gin.H{
				"sample_rate": meta.SampleRate,
				"channels":    meta.Channels,
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           c.Param("id"),
		"name":         ds.Name(),
		"signals":      signals,
		"participants": len(ds.ParticipantIDs()),
		"media":        len(ds.MediaIDs()),
		"trials":       len(ds.Trials()),
	})
}

func (s *Service) handleTrials(c *gin.Context) {
	ds, ok := s.resolve(c)
	if !ok {
		return
	}

	trials := ds.Trials()
	list := make([]gin.H, 0, len(trials))
	for _, trial := range trials {
		entry := gin.H{
			"participant": trial.ParticipantID(),
			"media":       trial.MediaID(),
			"media_name":  trial.MediaName(),
			"expected":    int(trial.ExpectedResponse()),
		}
		if truth, err := trial.LoadGroundTruth(); err == nil {
			entry["ground_truth"] = int(truth)
		}
		list = append(list, entry)
	}
	c.JSON(http.StatusOK, gin.H{"trials": list})
}

func (s *Service) handleSplits(c *gin.Context) {
	ds, ok := s.resolve(c)
	if !ok {
		return
	}

	fractions, err := parseFractions(c.Query("fractions"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var seed int64
	if raw := c.Query("seed"); raw != "" {
		seed, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seed"})
			return
		}
	} else {
		seed = time.Now().UnixNano()
	}

	sets, err := aer.DatasetSplits(ds, fractions, rand.New(rand.NewSource(seed)))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, aer.ErrInvalidFractions) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	splits := make([]gin.H, 0, len(sets))
	for _, set := range sets {
		participants := set.ParticipantIDs()
		sort.Ints(participants)
		splits = append(splits, gin.H{
			"name":         set.Name(),
			"trials":       len(set.Trials()),
			"participants": participants,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"batch_id": uuid.NewString(),
		"seed":     seed,
		"splits":   splits,
	})
}

func (s *Service) handleSignal(c *gin.Context) {
	ds, ok := s.resolve(c)
	if !ok {
		return
	}

	participant, err := strconv.Atoi(c.Param("participant"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
		return
	}
	media, err := strconv.Atoi(c.Param("media"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media id"})
		return
	}
	signal := c.Param("signal")

	var trial aer.Trial
	for _, candidate := range ds.Trials() {
		if candidate.ParticipantID() == participant && candidate.MediaID() == media {
			trial = candidate
			break
		}
	}
	if trial == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trial not found"})
		return
	}

	load := trial.LoadSignalData
	preprocessed := c.Query("preprocessed") == "1"
	if preprocessed {
		load = trial.LoadPreprocessedSignalData
	}

	sig, err := load(signal)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, aer.ErrUnknownSignal) || errors.Is(err, aer.ErrSignalFileMissing) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	rows, cols := sig.Dims()
	data := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		for j := 0; j < cols; j++ {
			row[j] = sig.At(i, j)
		}
		data[i] = row
	}

	resp := gin.H{
		"signal":       signal,
		"preprocessed": preprocessed,
		"channels":     rows,
		"samples":      cols,
		"data":         data,
	}
	if meta, ok := trial.SignalMetadata(signal); ok {
		resp["sample_rate"] = meta.SampleRate
	}
	c.JSON(http.StatusOK, resp)
}

// resolve loads the dataset named in the :id route param, writing the
// error response itself on failure.
func (s *Service) resolve(c *gin.Context) (aer.Dataset, bool) {
	ds, err := s.dataset(c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, aer.ErrDatasetNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, false
	}
	return ds, true
}

func parseFractions(raw string) ([]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("fractions query parameter is required")
	}
	parts := strings.Split(raw, ",")
	fractions := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.New("invalid fractions")
		}
		fractions = append(fractions, f)
	}
	return fractions, nil
}
