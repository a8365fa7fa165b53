package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/wikistream/core"
)

// Key prefixes for different data types
const (
	unitPrefix        = "unit"
	unitArticlePrefix = "unitart"
)

// makeUnitKey generates a key for a stored unit.
// Format: prefix:collection:id
func makeUnitKey(collection string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d", unitPrefix, collection, id))
}

// makeUnitCollectionPrefix generates the prefix shared by all units of a collection.
func makeUnitCollectionPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", unitPrefix, collection))
}

// makeUnitArticleKey generates a composite key for the article index.
// Format: prefix:collection:articleID:id
func makeUnitArticleKey(collection, articleID string, id core.ID) []byte {
	prefixBytes := makePartialUnitArticleKey(collection, articleID)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialUnitArticleKey generates a partial key for article queries.
// Format: prefix:collection:articleID:
func makePartialUnitArticleKey(collection, articleID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", unitArticlePrefix, collection, articleID))
}

// makeUnitArticleCollectionPrefix generates the prefix shared by a collection's article index.
func makeUnitArticleCollectionPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", unitArticlePrefix, collection))
}

// idFromArticleKey extracts the unit ID from an article index key.
func idFromArticleKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
