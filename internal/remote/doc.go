// Package remote implements the RPC envelope shared by the external row
// store, the step execution functions, and the action log.
//
// Every call POSTs a JSON body carrying a "function" key plus parameters and
// expects {"success": bool, "result": ..., "error": "..."} back. A
// success:false response is translated into an error naming the function and
// the embedded message. All failures are transient from the caller's point of
// view; retry belongs to the next scheduled cycle, never to this client.
package remote
