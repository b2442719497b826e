// Package weave binds widget behaviours to the nodes of a document tree.
// Nodes declare widgets through a data-weave attribute; weaving loads each
// named module, constructs and starts the widget concurrently, and records it
// in the node's registry. Unweaving stops all or a prefix-selected subset of
// the registered widgets and restores their directives so they can be woven
// again. Results surface through settle-once futures and lifecycle hooks, and
// nodes emit weave and unweave events once bookkeeping is done.
package weave
