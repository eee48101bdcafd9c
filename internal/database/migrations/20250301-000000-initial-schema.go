package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250301-000000",
		Description: "Initial schema",
		Up: []string{
			// Image generation jobs. urls/ipfs_urls are JSON arrays and
			// positionally aligned when both are present.
			`CREATE TABLE IF NOT EXISTS image_jobs (
				id TEXT PRIMARY KEY,
				status TEXT NOT NULL DEFAULT 'pending',
				prompt TEXT NOT NULL,
				model TEXT NOT NULL,
				size TEXT NOT NULL,
				urls TEXT,
				ipfs_urls TEXT,
				user_id TEXT,
				callback_url TEXT,
				error TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_image_jobs_user_id ON image_jobs(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_image_jobs_status ON image_jobs(status)`,
			`CREATE INDEX IF NOT EXISTS idx_image_jobs_created_at ON image_jobs(created_at)`,

			// Client callback delivery log, one row per attempt.
			`CREATE TABLE IF NOT EXISTS webhook_deliveries (
				id TEXT PRIMARY KEY,
				job_id TEXT NOT NULL,
				url TEXT NOT NULL,
				payload_json TEXT NOT NULL,
				status_code INTEGER,
				response_time_ms INTEGER,
				status TEXT NOT NULL,
				error_message TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_job_id ON webhook_deliveries(job_id)`,
		},
	})
}
