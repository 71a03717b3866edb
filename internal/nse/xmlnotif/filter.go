package xmlnotif

// Filter is the opaque XML filter-evaluation predicate the Send Dispatcher
// consumes (spec.md's "XML filter evaluation" external collaborator — out
// of scope for this package). It reports whether one top-level child element
// of a notification body (its raw outer XML as returned by TopLevelElements;
// eventTime is never among them) satisfies the subscription's filter subtree.
type Filter func(filterXML string, childXML []byte) bool
