// Package api hosts the web endpoint. Routes:
//   - GET / renders the submission form, flashed messages and the log feed.
//   - POST / validates a (keyword, num_posts) submission and starts a job.
//   - GET /api/feed returns the feed snapshot as JSON.
//   - GET /api/jobs and /api/jobs/{job_id} expose the in-memory job registry.
//   - GET /healthz, /readyz for probes and GET /metrics for Prometheus.
package api
