// Package repositories implements the durable store contracts on
// BadgerDB. Values are CBOR-encoded; keys follow a per-entity prefix
// discipline so that related records share a scan range.
package repositories

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"dchat/domain"
)

const (
	userPrefix    = "user:"
	walletPrefix  = "wallet:"
	roomPrefix    = "room:"
	roomNameIdx   = "roomname:"
	messagePrefix = "message:"
	msgRoomIdx    = "msgroom:"
)

func userKey(id domain.UserID) []byte       { return fmt.Appendf(nil, "%s%d", userPrefix, id) }
func walletKey(addr string) []byte          { return []byte(walletPrefix + addr) }
func roomKey(id domain.RoomID) []byte       { return fmt.Appendf(nil, "%s%d", roomPrefix, id) }
func roomNameKey(name string) []byte        { return []byte(roomNameIdx + name) }
func messageKey(id domain.MessageID) []byte { return fmt.Appendf(nil, "%s%d", messagePrefix, id) }

// msgRoomKey builds the room-ordered index key. The 19-digit padded
// nanosecond timestamp keeps lexicographical order chronological; the
// message id disambiguates two messages landing on the same nanosecond.
func msgRoomKey(roomID domain.RoomID, unixNano int64, id domain.MessageID) []byte {
	return fmt.Appendf(nil, "%s%d:%019d:%d", msgRoomIdx, roomID, unixNano, id)
}

func msgRoomPrefix(roomID domain.RoomID) []byte {
	return fmt.Appendf(nil, "%s%d:", msgRoomIdx, roomID)
}

// idValue stores an index target as a decimal string, readable in the
// badger inspection tooling.
func idValue(id int64) []byte {
	return fmt.Appendf(nil, "%d", id)
}

func lookupIndex(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if err != nil {
		return 0, err
	}
	var id int64
	err = item.Value(func(val []byte) error {
		_, err := fmt.Sscanf(string(val), "%d", &id)
		return err
	})
	return id, err
}

func getDecoded(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return decode(val, v)
	})
}

func encode(v any) ([]byte, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal failed: %w", err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cbor unmarshal failed: %w", err)
	}
	return nil
}
