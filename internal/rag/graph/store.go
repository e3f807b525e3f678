package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
)

type NodeKind string

const (
	NodeBlock  NodeKind = "block"
	NodeEntity NodeKind = "entity"

	relationContains = "contains"
)

type Edge struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

type graphFile struct {
	Nodes map[string]NodeKind `json:"nodes"`
	Edges []Edge              `json:"edges"`
}

// LocalGraphStore is a small adjacency store for the knowledge graph:
// block nodes, entity nodes, "contains" edges from blocks to their entities,
// and relation edges between entities. All adds are idempotent - extraction
// reruns must not inflate the graph.
//
// Not safe for concurrent use; the engine serializes access.
type LocalGraphStore struct {
	dataDir string
	logger  *logger_i.Logger

	nodes   map[string]NodeKind
	edges   map[string]Edge
	ordered []string //edge keys in insert order, for stable output
}

func NewLocalGraphStore(dataDir string) *LocalGraphStore {
	return &LocalGraphStore{
		dataDir: dataDir,
		logger:  logger_i.NewLogger("Graph Store :"),
		nodes:   make(map[string]NodeKind),
		edges:   make(map[string]Edge),
	}
}

func (g *LocalGraphStore) AddBlock(blockId string) {
	g.addNode(blockId, NodeBlock)
}

func (g *LocalGraphStore) AddEntity(name string) {
	g.addNode(name, NodeEntity)
}

func (g *LocalGraphStore) addNode(id string, kind NodeKind) {
	if _, ok := g.nodes[id]; !ok {
		g.nodes[id] = kind
	}
}

func (g *LocalGraphStore) AddContains(blockId, entity string) {
	g.addEdge(Edge{Source: blockId, Relation: relationContains, Target: entity})
}

func (g *LocalGraphStore) AddRelationship(head, relation, tail string) {
	g.addEdge(Edge{Source: head, Relation: relation, Target: tail})
}

func (g *LocalGraphStore) addEdge(e Edge) {
	key := e.Source + "\x00" + e.Relation + "\x00" + e.Target
	if _, ok := g.edges[key]; ok {
		return
	}
	g.edges[key] = e
	g.ordered = append(g.ordered, key)
}

func (g *LocalGraphStore) NodeCount() int { return len(g.nodes) }
func (g *LocalGraphStore) EdgeCount() int { return len(g.edges) }

// ContextualSubgraph renders the graph neighborhood of the retrieved blocks
// as prompt text: entities bridging two or more of the blocks, then relations
// whose endpoints both live in those blocks. Empty string when the graph has
// nothing to add.
func (g *LocalGraphStore) ContextualSubgraph(blockIds []string) string {
	selected := make(map[string]bool, len(blockIds))
	for _, id := range blockIds {
		selected[id] = true
	}

	entityBlocks := make(map[string][]string)
	localEntities := make(map[string]bool)
	for _, key := range g.ordered {
		e := g.edges[key]
		if e.Relation != relationContains || !selected[e.Source] {
			continue
		}
		entityBlocks[e.Target] = append(entityBlocks[e.Target], e.Source)
		localEntities[e.Target] = true
	}

	var lines []string
	bridges := make([]string, 0, len(entityBlocks))
	for entity, blocks := range entityBlocks {
		if len(blocks) >= 2 {
			bridges = append(bridges, entity)
		}
	}
	sort.Strings(bridges)
	for _, entity := range bridges {
		lines = append(lines, fmt.Sprintf("Common Entity '%s' connects blocks: %s", entity, strings.Join(entityBlocks[entity], ", ")))
	}

	for _, key := range g.ordered {
		e := g.edges[key]
		if e.Relation == relationContains {
			continue
		}
		if localEntities[e.Source] && localEntities[e.Target] {
			lines = append(lines, fmt.Sprintf("'%s' %s '%s'", e.Source, e.Relation, e.Target))
		}
	}

	if len(lines) == 0 {
		return ""
	}
	return "Graph Connections:\n- " + strings.Join(lines, "\n- ")
}

// RemoveBlock drops a block node, its contains edges, and any entity left
// orphaned (no remaining block contains it) together with that entity's
// relation edges.
func (g *LocalGraphStore) RemoveBlock(blockId string) {
	delete(g.nodes, blockId)
	g.dropEdges(func(e Edge) bool {
		return e.Relation == relationContains && e.Source == blockId
	})

	stillContained := make(map[string]bool)
	for _, key := range g.ordered {
		if e := g.edges[key]; e.Relation == relationContains {
			stillContained[e.Target] = true
		}
	}

	var orphans []string
	for id, kind := range g.nodes {
		if kind == NodeEntity && !stillContained[id] {
			orphans = append(orphans, id)
		}
	}
	for _, entity := range orphans {
		delete(g.nodes, entity)
	}
	orphaned := make(map[string]bool, len(orphans))
	for _, entity := range orphans {
		orphaned[entity] = true
	}
	g.dropEdges(func(e Edge) bool {
		return e.Relation != relationContains && (orphaned[e.Source] || orphaned[e.Target])
	})
}

func (g *LocalGraphStore) dropEdges(match func(Edge) bool) {
	kept := g.ordered[:0]
	for _, key := range g.ordered {
		if match(g.edges[key]) {
			delete(g.edges, key)
		} else {
			kept = append(kept, key)
		}
	}
	g.ordered = kept
}

func (g *LocalGraphStore) path() string {
	return filepath.Join(g.dataDir, config.GraphFile)
}

func (g *LocalGraphStore) Save() error {
	file := graphFile{Nodes: g.nodes, Edges: make([]Edge, 0, len(g.ordered))}
	for _, key := range g.ordered {
		file.Edges = append(file.Edges, g.edges[key])
	}
	raw, err := json.Marshal(file)
	if err != nil {
		return err
	}
	return os.WriteFile(g.path(), raw, 0o644)
}

// Load restores a persisted graph. Missing file means empty graph; a corrupt
// file is fatal for the same reason a corrupt index is.
func (g *LocalGraphStore) Load() error {
	raw, err := os.ReadFile(g.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var file graphFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse knowledge graph: %w", err)
	}

	g.nodes = file.Nodes
	if g.nodes == nil {
		g.nodes = make(map[string]NodeKind)
	}
	g.edges = make(map[string]Edge, len(file.Edges))
	g.ordered = g.ordered[:0]
	for _, e := range file.Edges {
		g.addEdge(e)
	}
	g.logger.Info("Knowledge graph loaded", "nodes", len(g.nodes), "edges", len(g.edges))
	return nil
}

func (g *LocalGraphStore) Clear() error {
	g.nodes = make(map[string]NodeKind)
	g.edges = make(map[string]Edge)
	g.ordered = nil
	if err := os.Remove(g.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
