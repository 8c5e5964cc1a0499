// Package syncer walks the vehicle pricing catalog and mirrors it into the
// destination store.
//
// A run is a sequential depth-first cascade: for each vehicle type it lists
// brands, keeps those accepted by the allow-list and limit, and for each
// brand walks models, then model years, fetching each year's price detail
// and writing it. Parents are always written before children so every child
// references an identifier the store has already assigned.
//
// Failures are contained at the level they occur. A brand or model that
// cannot be listed or written is recorded as a warning and its subtree is
// skipped; siblings continue. Only context cancellation stops a run early,
// in which case the partial report is returned with the context's error.
package syncer
