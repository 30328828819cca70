// Package state owns the interactive view state of a laid-out process flow.
//
// [Store] holds the node and edge sequence and applies actions through a
// single reducer ([Store.Dispatch]). Nodes carry only data and a stable id;
// the only mutation is [Toggle], which flips a node's Expanded flag.
//
// [Controller] sits on top of a Store and models the submission loop of an
// interactive front end: raw JSON submissions, summarization requests with a
// busy flag, file uploads, and the rule that a failed submission never
// replaces the last good graph.
//
// Neither type is safe for concurrent use without external synchronization,
// except where a method says otherwise; the intended driver is a single event
// loop such as a bubbletea program or an HTTP handler holding a session lock.
package state
