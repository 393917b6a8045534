package db

import (
	_ "embed"
)

// Schema

//go:embed sql/create_tables.sql
var CreateTablesSQL string

// Video queries

//go:embed sql/select_video_by_path.sql
var SelectVideoByPathSQL string

//go:embed sql/insert_video.sql
var InsertVideoSQL string

//go:embed sql/update_video.sql
var UpdateVideoSQL string

// Step queries

//go:embed sql/insert_step.sql
var InsertStepSQL string

//go:embed sql/select_history.sql
var SelectHistorySQL string
