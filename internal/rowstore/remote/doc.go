// Package remote implements the production row store backend over the RPC
// envelope exposed by the external row table.
package remote
