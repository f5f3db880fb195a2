// Package tracking turns raw carrier feeds into the facts a shipment view
// needs: grouped display events, the port route with dwell times, the
// milestone checklist and the overall shipment status.
//
// Every function here is pure. Callers recompute from scratch whenever the
// underlying shipment record changes; nothing is cached between calls and
// malformed records degrade to fewer derived facts instead of errors.
package tracking
