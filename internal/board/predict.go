package board

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"jobmarket-engine/internal/events"
	"jobmarket-engine/internal/frame"
	"jobmarket-engine/internal/metrics"
	"jobmarket-engine/internal/model"
	"jobmarket-engine/internal/session"
	"jobmarket-engine/internal/store"
)

type PredictResult struct {
	Board      string             `json:"board"`
	Inputs     map[string]float64 `json:"inputs"`
	Prediction model.Prediction   `json:"prediction"`
	Text       string             `json:"text"`
	// Trained reports whether this call fitted the model.
	Trained   bool  `json:"trained"`
	HistoryID int64 `json:"historyId,omitempty"`
}

// Predict runs the board's model on inputs. The model is fitted on the
// full table (or the filtered rows when the board trains on filtered data)
// and kept in the session until its training key changes.
func (s *Service) Predict(ctx context.Context, sess *session.Session, name string, q Query, inputs map[string]float64) (PredictResult, error) {
	st, err := s.selection(ctx, sess, name, q)
	if err != nil {
		return PredictResult{}, err
	}
	mc := st.board.Model
	if mc.Kind == "" {
		return PredictResult{}, fmt.Errorf("%w: %q", ErrNoModel, name)
	}

	x, err := featureVector(mc.Features, inputs)
	if err != nil {
		return PredictResult{}, err
	}

	train := st.full
	key := datasetKey(st.cfg, st.board, q) + "|" + fmt.Sprintf("%+v", mc)
	if mc.TrainOnFiltered {
		train = st.rows
		key += "|" + q.Filters.Key()
	}

	classify := st.info.Classifies()
	pred, trained, err := sess.Model(name).Get(key, func() (model.Predictor, error) {
		return s.fit(ctx, sess, st, train, classify, q.Filters)
	})
	if err != nil {
		return PredictResult{}, err
	}

	p, err := pred.Predict(x)
	if err != nil {
		return PredictResult{}, fmt.Errorf("%w: %w", ErrBadInput, err)
	}
	metrics.IncPredictions()

	res := PredictResult{
		Board:      name,
		Inputs:     inputs,
		Prediction: p,
		Text:       p.Text(),
		Trained:    trained,
	}
	if s.db != nil {
		rec := store.Prediction{
			Board:   name,
			Session: sess.ID,
			Kind:    p.Kind,
			Inputs:  inputs,
			Label:   p.Label,
			Text:    res.Text,
		}
		if mc.TrainOnFiltered {
			rec.Filters = q.Filters.Key()
		}
		if p.Label == "" {
			v := p.Value
			rec.Value = &v
		}
		saved, err := store.InsertPrediction(ctx, s.db, rec)
		if err != nil {
			log.Printf("[board] %s: record prediction: %v", name, err)
		} else {
			res.HistoryID = saved.ID
		}
	}
	s.hub.Emit(scope(ctx, sess, name), events.TypePredictionMade, events.PredictionMade{ID: res.HistoryID, Text: res.Text})
	return res, nil
}

func (s *Service) fit(ctx context.Context, sess *session.Session, st selected, train frame.View, classify bool, f frame.Filters) (model.Predictor, error) {
	mc := st.board.Model
	d := model.FromView(train, mc.Features, st.board.Target, classify)

	start := time.Now()
	pred, err := model.Fit(mc.Kind, d, model.Params{Trees: mc.Trees, MaxDepth: mc.MaxDepth, Seed: mc.Seed})
	if err != nil {
		return nil, fmt.Errorf("train %s: %w", st.board.Name, err)
	}
	metrics.ObserveTraining(time.Since(start))
	log.Printf("[board] %s: trained %s on %d rows in %s", st.board.Name, mc.Kind, d.Len(), time.Since(start).Round(time.Millisecond))

	evt := events.ModelTrained{Kind: mc.Kind, Features: mc.Features, Rows: d.Len()}
	if mc.TrainOnFiltered {
		evt.Filters = f.Key()
	}
	s.hub.Emit(scope(ctx, sess, st.board.Name), events.TypeModelTrained, evt)
	return pred, nil
}

// featureVector orders inputs by the model's features. Missing and unknown
// names are both rejected.
func featureVector(features []string, inputs map[string]float64) ([]float64, error) {
	x := make([]float64, len(features))
	var missing []string
	for i, f := range features {
		v, ok := inputs[f]
		if !ok {
			missing = append(missing, f)
			continue
		}
		x[i] = v
	}
	var unknown []string
	for k := range inputs {
		if !contains(features, k) {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)

	switch {
	case len(missing) > 0:
		return nil, fmt.Errorf("%w: missing %s", ErrBadInput, strings.Join(missing, ", "))
	case len(unknown) > 0:
		return nil, fmt.Errorf("%w: unknown %s (want %s)", ErrBadInput, strings.Join(unknown, ", "), strings.Join(features, ", "))
	}
	return x, nil
}
