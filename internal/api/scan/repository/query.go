package scanRepository

const (
	queryCreateScan = `
		INSERT INTO scans (
			id,
			latitude,
			longitude,
			image_url,
			annotated_image_url,
			detection_results,
			llm_report,
			llm_report_structured,
			created_at
		) VALUES (
			:id,
			:latitude,
			:longitude,
			:image_url,
			:annotated_image_url,
			:detection_results,
			:llm_report,
			:llm_report_structured,
			:created_at
		)
	`

	queryGetAllScans = `
		SELECT
			id,
			latitude,
			longitude,
			image_url,
			annotated_image_url,
			detection_results,
			llm_report,
			llm_report_structured,
			created_at
		FROM scans
		ORDER BY created_at DESC
	`

	queryGetScanByID = `
		SELECT
			id,
			latitude,
			longitude,
			image_url,
			annotated_image_url,
			detection_results,
			llm_report,
			llm_report_structured,
			created_at
		FROM scans
		WHERE id = :id
	`
)
