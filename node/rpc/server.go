package rpc

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/somechain-network/node/consensus"
)

// PeerRPCHandler is implemented by the node and backs every HTTP endpoint
// in the peer RPC surface.
type PeerRPCHandler interface {
	// Greet receives the peer's advertised port/version/height and returns
	// ours.
	Greet(port, version, blockHeight int) (version2, blockHeight2 int)
	// GetBlock returns the block stored under hash, if known; the server
	// serializes it for the response.
	GetBlock(hash consensus.Hash) (*consensus.Block, bool)
	// OnActiveChain reports whether hash is on the active chain.
	OnActiveChain(hash consensus.Hash) bool
	// BlockHashesAbove returns, in height order, the header hashes on the
	// active chain strictly above myHeight.
	BlockHashesAbove(myHeight int) []consensus.Hash
	// SubmitBlock ingests a peer-supplied block, returning whether it was
	// accepted.
	SubmitBlock(block *consensus.Block) (accepted bool, reason string)
	// SubmitTransaction admits a peer-supplied transaction to the mempool,
	// returning whether it was accepted.
	SubmitTransaction(tx *consensus.Transaction) (accepted bool, reason string)
}

// Server exposes a PeerRPCHandler over HTTP, matching the endpoint table
// in the peer sync design.
type Server struct {
	handler PeerRPCHandler
	log     *slog.Logger
}

func NewServer(handler PeerRPCHandler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{handler: handler, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/greet", s.handleGreet)
	mux.HandleFunc("/getblock", s.handleGetBlock)
	mux.HandleFunc("/checkblock", s.handleCheckBlock)
	mux.HandleFunc("/getblockhashes", s.handleGetBlockHashes)
	mux.HandleFunc("/newblock", s.handleNewBlock)
	mux.HandleFunc("/newtransaction", s.handleNewTransaction)
	return mux
}

func (s *Server) handleGreet(w http.ResponseWriter, r *http.Request) {
	var req GreetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	version, height := s.handler.Greet(req.Port, req.Version, req.BlockHeight)
	writeJSON(w, GreetResponse{Version: version, BlockHeight: height})
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	var req GetBlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	block, ok := s.handler.GetBlock(consensus.Hash(req.HeaderHash))
	if !ok {
		writeJSON(w, GetBlockResponse{Found: false})
		return
	}
	writeJSON(w, GetBlockResponse{Found: true, BlockHex: hex.EncodeToString(consensus.CanonicalBlock(block))})
}

func (s *Server) handleCheckBlock(w http.ResponseWriter, r *http.Request) {
	var req CheckBlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, CheckBlockResponse{OnActiveChain: s.handler.OnActiveChain(consensus.Hash(req.HeaderHash))})
}

func (s *Server) handleGetBlockHashes(w http.ResponseWriter, r *http.Request) {
	var req GetBlockHashesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	hashes := s.handler.BlockHashesAbove(req.MyHeight)
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = string(h)
	}
	writeJSON(w, GetBlockHashesResponse{Hashes: out})
}

func (s *Server) handleNewBlock(w http.ResponseWriter, r *http.Request) {
	var req NewBlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	raw, err := hex.DecodeString(req.BlockHex)
	if err != nil {
		writeJSON(w, AckResponse{Accepted: false, Reason: "bad hex"})
		return
	}
	block, err := consensus.ParseBlock(raw)
	if err != nil {
		writeJSON(w, AckResponse{Accepted: false, Reason: err.Error()})
		return
	}
	accepted, reason := s.handler.SubmitBlock(block)
	writeJSON(w, AckResponse{Accepted: accepted, Reason: reason})
}

func (s *Server) handleNewTransaction(w http.ResponseWriter, r *http.Request) {
	var req NewTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	raw, err := hex.DecodeString(req.TransactionHex)
	if err != nil {
		writeJSON(w, AckResponse{Accepted: false, Reason: "bad hex"})
		return
	}
	tx, err := consensus.ParseTransaction(raw)
	if err != nil {
		writeJSON(w, AckResponse{Accepted: false, Reason: err.Error()})
		return
	}
	accepted, reason := s.handler.SubmitTransaction(tx)
	writeJSON(w, AckResponse{Accepted: accepted, Reason: reason})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
