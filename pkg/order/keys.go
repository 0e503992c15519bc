package order

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema.
// Order ids are zero-padded to 20 digits so lexicographic order matches
// numeric order and range scans paginate correctly in both directions.

const (
	prefixOrder   = "ord:"  // ord:{id} -> Order
	prefixUser    = "uord:" // uord:{address}:{id} -> order id index
	prefixEscrow  = "esc:"  // esc:{id} -> Escrow
	keyLastID     = "meta:last_order_id"
	paddedIDWidth = 20
)

func orderKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixOrder, id))
}

func orderPrefix() []byte {
	return []byte(prefixOrder)
}

func userOrderKey(addr common.Address, id uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixUser, addr.Hex(), id))
}

func userOrderPrefix(addr common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixUser, addr.Hex()))
}

func escrowKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixEscrow, id))
}

func escrowPrefix() []byte {
	return []byte(prefixEscrow)
}

func lastIDKey() []byte {
	return []byte(keyLastID)
}

// idFromKey parses the trailing padded id off any of the keyed formats.
func idFromKey(key []byte) (uint64, error) {
	if len(key) < paddedIDWidth {
		return 0, fmt.Errorf("key too short for order id: %q", key)
	}
	return strconv.ParseUint(string(key[len(key)-paddedIDWidth:]), 10, 64)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
