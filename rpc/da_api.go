package rpc

import (
	"encoding/json"
	"errors"

	"github.com/availproject/avail-da/errs"
)

// Backend is the set of data-availability operations the RPC layer
// dispatches to. Implemented by the node's blob/kate wiring.
type Backend interface {
	SubmitBlob(metadataTx, blob []byte) error
	QueryProof(cells []CellRef, blockHash string) ([]CellProof, error)
	QueryDataProof(txIndex uint32, blockHash string) (DataProof, error)
	QueryBlockLength(blockHash string) (KateQueryBlockLengthResult, error)
}

// EthAPI dispatches JSON-RPC requests to a Backend. The name is kept from
// the HTTP transport shell this package builds on; it carries no
// Ethereum-specific behavior.
type EthAPI struct {
	backend Backend
}

// NewEthAPI constructs an API dispatcher over backend.
func NewEthAPI(backend Backend) *EthAPI {
	return &EthAPI{backend: backend}
}

// HandleRequest dispatches a single JSON-RPC request to the matching method.
func (a *EthAPI) HandleRequest(req *Request) *Response {
	resp := &Response{JSONRPC: "2.0", ID: req.ID}

	result, err := a.dispatch(req.Method, req.Params)
	if err != nil {
		resp.Error = toRPCError(err)
		return resp
	}
	resp.Result = result
	return resp
}

func (a *EthAPI) dispatch(method string, params []json.RawMessage) (interface{}, error) {
	switch method {
	case "blob_submitBlob":
		return a.blobSubmitBlob(params)
	case "kate_queryProof":
		return a.kateQueryProof(params)
	case "kate_queryDataProof":
		return a.kateQueryDataProof(params)
	case "kate_queryBlockLength":
		return a.kateQueryBlockLength(params)
	default:
		return nil, &RPCError{Code: ErrCodeMethodNotFound, Message: "method not found: " + method}
	}
}

func (a *EthAPI) blobSubmitBlob(params []json.RawMessage) (interface{}, error) {
	if len(params) < 2 {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "blob_submitBlob requires metadata_tx and blob"}
	}
	var metadataTxHex, blobHex string
	if err := json.Unmarshal(params[0], &metadataTxHex); err != nil {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "metadata_tx must be a hex string"}
	}
	if err := json.Unmarshal(params[1], &blobHex); err != nil {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "blob must be a hex string"}
	}

	var p BlobSubmitParams
	if err := p.unmarshalHex(metadataTxHex, blobHex); err != nil {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: err.Error()}
	}
	if err := a.backend.SubmitBlob(p.MetadataTx, p.Blob); err != nil {
		return nil, err
	}
	return nil, nil
}

func (a *EthAPI) kateQueryProof(params []json.RawMessage) (interface{}, error) {
	if len(params) < 1 {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "kate_queryProof requires cells"}
	}
	var cells []CellRef
	if err := json.Unmarshal(params[0], &cells); err != nil {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "cells must be an array of {row,col}"}
	}
	var blockHash string
	if len(params) > 1 {
		json.Unmarshal(params[1], &blockHash)
	}
	return a.backend.QueryProof(cells, blockHash)
}

func (a *EthAPI) kateQueryDataProof(params []json.RawMessage) (interface{}, error) {
	if len(params) < 1 {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "kate_queryDataProof requires tx_index"}
	}
	var txIndex uint32
	if err := json.Unmarshal(params[0], &txIndex); err != nil {
		return nil, &RPCError{Code: ErrCodeInvalidParams, Message: "tx_index must be a number"}
	}
	var blockHash string
	if len(params) > 1 {
		json.Unmarshal(params[1], &blockHash)
	}
	proof, err := a.backend.QueryDataProof(txIndex, blockHash)
	if err != nil {
		return nil, err
	}
	return KateQueryDataProofResult{DataProof: proof}, nil
}

func (a *EthAPI) kateQueryBlockLength(params []json.RawMessage) (interface{}, error) {
	var blockHash string
	if len(params) > 0 {
		json.Unmarshal(params[0], &blockHash)
	}
	return a.backend.QueryBlockLength(blockHash)
}

// toRPCError maps any error into the JSON-RPC error envelope. Domain errors
// (errs.Error) always collapse to the single custom code 1 per spec.md §7;
// everything else surfaces as an internal error.
func toRPCError(err error) *RPCError {
	if rpcErr, ok := err.(*RPCError); ok {
		return rpcErr
	}
	var domainErr *errs.Error
	if errors.As(err, &domainErr) {
		return &RPCError{Code: ErrCodeDomain, Message: domainErr.Error()}
	}
	return &RPCError{Code: ErrCodeInternal, Message: err.Error()}
}
