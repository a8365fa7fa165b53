package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// UnitID derives the storage identity of a text unit from its source position and content.
// Re-delivering the same unit after a resume yields the same ID.
func UnitID(u TextUnit) ID {
	return IDFromContent(u.ArticleID + "\x00" + u.SectionName + "\x00" + strconv.Itoa(u.Position) + "\x00" + u.Content)
}

// StartOfDump is the LastArticleID of a checkpoint that has not processed anything yet.
const StartOfDump = "0"

// Page is one <page> element of the dump. Pages are transient: they are
// handed to extraction as soon as they are parsed and never retained.
type Page struct {
	Title      string
	ID         string
	Namespace  int
	IsRedirect bool
	RawText    string
}

// Section is a headed region of an article body.
// An empty Name denotes the introduction (text before the first heading).
type Section struct {
	Name    string
	Level   int
	Content string
}

// TextUnit is one cleaned paragraph tagged with its source article and section.
// Position is 0-based and strictly increasing within (ArticleID, SectionName).
type TextUnit struct {
	ArticleID    string `json:"article_id"`
	ArticleTitle string `json:"article_title"`
	SectionName  string `json:"section_name"`
	Position     int    `json:"position"`
	Content      string `json:"content"`
}

// IndexEntry is one line of the multistream side-car index.
type IndexEntry struct {
	ByteOffset   int64
	ArticleID    string
	ArticleTitle string
}

// Block is a contiguous, independently decompressible byte range of the dump.
// EndOffset is inclusive; -1 means "to end of file" and only appears on the last block.
type Block struct {
	ByteOffset   int64
	EndOffset    int64
	ArticleIDs   []string
	ArticleCount int
}

// ToEOF reports whether the block extends to the end of the dump.
func (b Block) ToEOF() bool {
	return b.EndOffset < 0
}

// Checkpoint is the durable record of ingestion progress.
//
// CompletedBlockOffsets is nil when the run never used multi-block mode and
// non-nil (possibly empty) once it has.
//
// TotalArticles is the number of index entries, redirects and skipped
// namespaces included. ArticlesProcessed only counts articles that yielded
// units, so it stays below TotalArticles on a finished run.
type Checkpoint struct {
	LastArticleID         string    `json:"last_article_id"`
	ArticlesProcessed     int       `json:"articles_processed"`
	TotalArticles         int       `json:"total_articles"`
	Strategy              string    `json:"strategy"`
	DumpFile              string    `json:"dump_file"`
	DumpDate              string    `json:"dump_date"`
	EmbeddingModel        string    `json:"embedding_model"`
	CollectionName        string    `json:"collection_name"`
	Timestamp             time.Time `json:"timestamp"`
	CompletedBlockOffsets []int64   `json:"completed_block_offsets,omitzero"`
}

// StoredUnit is a text unit as persisted by the local unit store.
type StoredUnit struct {
	Id           ID
	Collection   string
	ArticleID    string
	ArticleTitle string
	SectionName  string
	Position     int
	Content      string
	Vector       []float32 // Embedding vector (empty when stored without embeddings)
	InsertedAt   time.Time
}

// NewStoredUnit wraps a text unit for storage in the given collection.
func NewStoredUnit(collection string, u TextUnit, vector []float32) *StoredUnit {
	return &StoredUnit{
		Id:           UnitID(u),
		Collection:   collection,
		ArticleID:    u.ArticleID,
		ArticleTitle: u.ArticleTitle,
		SectionName:  u.SectionName,
		Position:     u.Position,
		Content:      u.Content,
		Vector:       vector,
	}
}

// Unit returns the text unit carried by the stored record.
func (s *StoredUnit) Unit() TextUnit {
	return TextUnit{
		ArticleID:    s.ArticleID,
		ArticleTitle: s.ArticleTitle,
		SectionName:  s.SectionName,
		Position:     s.Position,
		Content:      s.Content,
	}
}
