// Package search provides full-text lookup of imported students using Bleve.
package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
)

// StudentDocument is the indexed form of one student
type StudentDocument struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	Shift     string `json:"shift"`
	Status    string `json:"status"`
	Sex       string `json:"sex"`
}

// StudentHit is a search hit with relevance score
type StudentHit struct {
	StudentDocument
	Score float64 `json:"score"`
}

// StudentIndex is an in-memory index of parsed students
type StudentIndex struct {
	index   bleve.Index
	indexMu sync.RWMutex
}

// NewStudentIndex creates an empty in-memory index
func NewStudentIndex() (*StudentIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &StudentIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("class_name", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("shift", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("status", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("sex", keywordFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// documentID keys a student by class and name, the same identity the
// repository uses, so a re-import replaces the previous entry
func documentID(className, name string) string {
	return className + "|" + name
}

// IndexClasses adds or replaces every student of the given classes
func (si *StudentIndex) IndexClasses(classes []parser.ParsedClass) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	batch := si.index.NewBatch()
	for _, class := range classes {
		for _, s := range class.Students {
			doc := StudentDocument{
				ID:        documentID(class.ClassName, s.Name),
				Name:      s.Name,
				ClassName: class.ClassName,
				Shift:     class.Shift,
				Status:    string(s.Result),
				Sex:       s.Sex,
			}
			if err := batch.Index(doc.ID, doc); err != nil {
				return fmt.Errorf("failed to index student %s: %w", s.Name, err)
			}
		}
	}

	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// Search matches student names with typo tolerance and prefix completion
func (si *StudentIndex) Search(text string, limit int) ([]StudentHit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []StudentHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	match := bleve.NewMatchQuery(text)
	match.SetField("name")
	match.SetFuzziness(1)

	queries := []query.Query{match}
	for _, term := range strings.Fields(strings.ToLower(text)) {
		prefix := bleve.NewPrefixQuery(term)
		prefix.SetField("name")
		queries = append(queries, prefix)
	}

	return si.search(bleve.NewDisjunctionQuery(queries...), limit)
}

// ByStatus lists students with the given final status
func (si *StudentIndex) ByStatus(status parser.Status, limit int) ([]StudentHit, error) {
	if limit <= 0 {
		limit = 100
	}
	term := bleve.NewTermQuery(string(status))
	term.SetField("status")
	return si.search(term, limit)
}

func (si *StudentIndex) search(q query.Query, limit int) ([]StudentHit, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"*"}

	res, err := si.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]StudentHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := StudentHit{StudentDocument: StudentDocument{ID: h.ID}, Score: h.Score}
		hit.Name, _ = h.Fields["name"].(string)
		hit.ClassName, _ = h.Fields["class_name"].(string)
		hit.Shift, _ = h.Fields["shift"].(string)
		hit.Status, _ = h.Fields["status"].(string)
		hit.Sex, _ = h.Fields["sex"].(string)
		hits = append(hits, hit)
	}
	return hits, nil
}

// DocumentCount returns the number of indexed students
func (si *StudentIndex) DocumentCount() (uint64, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()
	return si.index.DocCount()
}

// Close closes the index
func (si *StudentIndex) Close() error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()
	return si.index.Close()
}
