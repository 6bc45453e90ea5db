// Package strategy implements the five interchangeable placement and
// routing policies — COORDINATED, LRU, HYBRID, MFU, SDF — built on top
// of pkg/compute's ComputeSpot and the pkg/simview / pkg/simcontrol
// collaborator interfaces. Every Strategy implements ProcessEvent, the
// single entry point the harness drives; common.go factors out the
// event topology (session start/forward, cloud admission,
// TASK_COMPLETE dispatch, RESPONSE relay) shared by LRU, HYBRID, MFU,
// and SDF, leaving each variant to implement only its admission policy
// at an intermediate node and its replacement pass. COORDINATED's event
// topology differs enough (feasibility probing instead of admit-and-
// forward) that it implements ProcessEvent directly.
package strategy
