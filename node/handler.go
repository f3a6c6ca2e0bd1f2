package node

import (
	"github.com/somechain-network/node/consensus"
)

// ProtocolVersion is advertised to peers during Greet and carried in no
// other wire data; bumping it is purely informational for now.
const ProtocolVersion = 1

// Handler adapts a BlockChain to the peer RPC and sync interfaces, so the
// HTTP server and the fork-point sync routine both drive the same
// ingestion path a locally mined block uses.
type Handler struct {
	bc  *BlockChain
	now func() int64

	// OnBlockAccepted and OnTransactionAccepted, when set, run after a
	// peer-submitted artifact is accepted. The node wires them to gossip
	// re-broadcast and to scheduling miner termination.
	OnBlockAccepted       func(*consensus.Block)
	OnTransactionAccepted func(*consensus.Transaction)
}

func NewHandler(bc *BlockChain, now func() int64) *Handler {
	return &Handler{bc: bc, now: now}
}

func (h *Handler) Greet(port, version, blockHeight int) (int, int) {
	return ProtocolVersion, int(h.bc.Active().Length())
}

func (h *Handler) GetBlock(hash consensus.Hash) (*consensus.Block, bool) {
	return h.bc.store.GetBlock(hash)
}

func (h *Handler) OnActiveChain(hash consensus.Hash) bool {
	h.bc.mu.Lock()
	defer h.bc.mu.Unlock()
	active := h.bc.chains[h.bc.active]
	for _, hdr := range active.HeaderList {
		if consensus.HeaderHash(&hdr) == hash {
			return true
		}
	}
	return false
}

func (h *Handler) BlockHashesAbove(myHeight int) []consensus.Hash {
	h.bc.mu.Lock()
	active := h.bc.chains[h.bc.active]
	headers := active.HeaderList
	h.bc.mu.Unlock()

	if myHeight < -1 || myHeight >= len(headers) {
		return nil
	}
	out := make([]consensus.Hash, 0, len(headers)-myHeight-1)
	for i := myHeight + 1; i < len(headers); i++ {
		out = append(out, consensus.HeaderHash(&headers[i]))
	}
	return out
}

func (h *Handler) SubmitBlock(block *consensus.Block) (bool, string) {
	if err := h.AddBlock(block); err != nil {
		return false, err.Error()
	}
	if h.OnBlockAccepted != nil {
		h.OnBlockAccepted(block)
	}
	return true, ""
}

func (h *Handler) SubmitTransaction(tx *consensus.Transaction) (bool, string) {
	if err := h.bc.AdmitTransaction(*tx, h.now()); err != nil {
		return false, err.Error()
	}
	if h.OnTransactionAccepted != nil {
		h.OnTransactionAccepted(tx)
	}
	return true, ""
}

// AddBlock satisfies rpc.Ingest: the fork-point sync routine calls this for
// every block it fetches above the agreed height.
func (h *Handler) AddBlock(block *consensus.Block) error {
	return h.bc.AddBlock(block, h.now())
}

// ActiveHeaderAt satisfies rpc.Ingest, used by the fork-point binary search.
func (h *Handler) ActiveHeaderAt(height int) (consensus.Hash, bool) {
	h.bc.mu.Lock()
	defer h.bc.mu.Unlock()
	headers := h.bc.chains[h.bc.active].HeaderList
	if height < 0 || height >= len(headers) {
		return "", false
	}
	return consensus.HeaderHash(&headers[height]), true
}

// ActiveLength satisfies rpc.Ingest.
func (h *Handler) ActiveLength() int {
	return int(h.bc.Active().Length())
}
