package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lumisearch/lumi/internal/barrel"
	"github.com/lumisearch/lumi/internal/dftable"
	"github.com/lumisearch/lumi/internal/index"
	"github.com/lumisearch/lumi/internal/lexicon"
	"github.com/lumisearch/lumi/internal/shard"
	"github.com/lumisearch/lumi/pkg/config"
)

// State is the index metadata kept in memory between operations. The
// barrels themselves live in the shard store.
type State struct {
	Lexicon *lexicon.Lexicon
	Barrels *barrel.Map
	DF      *dftable.Table

	// docs holds the id of every document with at least one posting. It is
	// nil until the barrels have been scanned.
	docs map[int]struct{}
}

// NewState returns empty metadata for a fresh index.
func NewState() *State {
	return &State{
		Lexicon: lexicon.New(),
		Barrels: barrel.NewMap(),
		DF:      dftable.New(),
		docs:    make(map[int]struct{}),
	}
}

// LoadState reads the lexicon, barrel map and DF table. Missing files yield
// empty structures; unreadable ones are configuration errors. The barrel
// map is reconciled with the router.
func LoadState(cfg config.IndexerConfig) (*State, error) {
	lex, err := lexicon.LoadOrEmpty(cfg.LexiconPath())
	if err != nil {
		return nil, err
	}
	barrels, err := barrel.LoadMapOrEmpty(cfg.BarrelMapPath())
	if err != nil {
		return nil, err
	}
	df, err := dftable.LoadOrEmpty(cfg.DFPath())
	if err != nil {
		return nil, err
	}
	if n := barrels.Reconcile(lex.Words()); n > 0 {
		slog.Default().With("component", "indexer").Info("barrel map reconciled", "entries", n)
	}
	return &State{Lexicon: lex, Barrels: barrels, DF: df}, nil
}

// Save writes the barrel map, the lexicon and the DF table, in that order.
func (s *State) Save(cfg config.IndexerConfig) error {
	if err := s.Barrels.Save(cfg.BarrelMapPath()); err != nil {
		return fmt.Errorf("persisting index state: %w", err)
	}
	if err := s.Lexicon.Save(cfg.LexiconPath()); err != nil {
		return fmt.Errorf("persisting index state: %w", err)
	}
	if err := s.DF.Save(cfg.DFPath()); err != nil {
		return fmt.Errorf("persisting index state: %w", err)
	}
	return nil
}

// LoadDocuments collects the id of every document with a posting by
// scanning all barrels in store.
func (s *State) LoadDocuments(ctx context.Context, store *shard.Store) error {
	docs := make(map[int]struct{})
	err := store.ForEach(ctx, func(_ int, sh index.Shard) error {
		for _, pl := range sh {
			for docID := range pl {
				docs[docID] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("collecting indexed documents: %w", err)
	}
	s.docs = docs
	return nil
}

// HasDocument reports whether docID is indexed. It is only meaningful after
// LoadDocuments, or on a State made by NewState.
func (s *State) HasDocument(docID int) bool {
	_, ok := s.docs[docID]
	return ok
}

// Documents is the number of indexed documents.
func (s *State) Documents() int {
	return len(s.docs)
}

func (s *State) addDocument(docID int) {
	if s.docs != nil {
		s.docs[docID] = struct{}{}
	}
}
