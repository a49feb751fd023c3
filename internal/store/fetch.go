package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rebeliceyang/lazynotion/internal/filter"
	"github.com/rebeliceyang/lazynotion/internal/history"
	"github.com/rebeliceyang/lazynotion/internal/models"
	"github.com/rebeliceyang/lazynotion/internal/notion"
)

// FetchData compiles the filters and queries with the current sorts. Only
// one fetch runs at a time. A filter that does not compile blocks the fetch
// and is reported in FilterError. A failed query keeps the previous records.
func (s *Store) FetchData(ctx context.Context) error {
	// compile and mark the fetch in one transition so the filter sent is the
	// tree that was committed
	var (
		params     models.QueryParams
		compileErr error
	)
	err := s.applyErr(func(st *State) error {
		if st.IsFetching {
			return ErrFetchInFlight
		}
		res := filter.Compile(st.Filters)
		if !res.OK() {
			st.FilterError = res.Error()
			compileErr = res.Err
			return nil
		}
		st.IsFetching = true
		st.FilterError = ""
		params = models.QueryParams{Filter: res.Filter, Sorts: st.Sorts}
		return nil
	})
	if err != nil {
		return err
	}
	if compileErr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, compileErr)
	}

	start := time.Now()
	records, err := s.querier.Query(ctx, params)
	elapsed := time.Since(start)
	s.recordHistory(params, len(records), elapsed, err)

	if err != nil {
		s.logger.Error("fetch failed", "database", s.database, "error", err)
		s.Apply(func(st *State) {
			st.IsFetching = false
			st.LastError = err.Error()
		})
		return err
	}

	s.logger.Info("fetch finished", "database", s.database, "records", len(records), "duration", elapsed)
	s.Apply(func(st *State) {
		st.Records = records
		// an empty result says nothing about the columns; keep the old ones
		if len(records) > 0 || len(st.Schema) == 0 {
			st.Schema = notion.DeriveProperties(records)
		}
		st.IsFetching = false
		st.IsLoaded = true
		st.LastError = ""
	})

	s.cacheAllPropertyOptions()
	return nil
}

func (s *Store) recordHistory(params models.QueryParams, count int, elapsed time.Duration, queryErr error) {
	if s.history == nil {
		return
	}

	entry := history.Entry{
		DatabaseID:  s.database,
		Duration:    elapsed,
		RecordCount: count,
		Success:     queryErr == nil,
	}
	if params.Filter != nil {
		if data, err := json.Marshal(params.Filter); err == nil {
			entry.Filter = string(data)
		}
	}
	if len(params.Sorts) > 0 {
		if data, err := json.Marshal(params.Sorts); err == nil {
			entry.Sorts = string(data)
		}
	}
	if queryErr != nil {
		entry.ErrorMessage = queryErr.Error()
	}

	if err := s.history.Add(entry); err != nil {
		s.logger.Warn("failed to record history", "error", err)
	}
}
