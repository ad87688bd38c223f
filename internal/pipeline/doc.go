// Package pipeline provides a framework for executing audit steps in sequence.
//
// The pipeline pattern is used to process a site through the audit stages:
// sitemap enumeration, page deduplication, anchor harvesting, link
// classification, liveness probing, and broken-link matching. Each stage is
// implemented as a Step that receives the current report and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running audits
// 4. Tests can run partial pipelines with fabricated intermediate state
//
// The pipeline supports both individual audits and batch processing with
// concurrency control using errgroup.
package pipeline
