package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS saved_apks (
    file_uri TEXT PRIMARY KEY,
    file_name TEXT NOT NULL,
    file_type TEXT NOT NULL,
    file_last_modified INTEGER NOT NULL,
    file_size INTEGER NOT NULL,
    app_name TEXT,
    app_package_name TEXT,
    app_icon BLOB,
    app_version_name TEXT,
    app_version_code INTEGER,
    app_min_sdk_version INTEGER,
    app_target_sdk_version INTEGER,
    loaded BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_saved_apks_file_name ON saved_apks(file_name);
CREATE INDEX IF NOT EXISTS idx_saved_apks_app_name ON saved_apks(app_name);
CREATE INDEX IF NOT EXISTS idx_saved_apks_app_package_name ON saved_apks(app_package_name);
CREATE INDEX IF NOT EXISTS idx_saved_apks_app_version_name ON saved_apks(app_version_name);
CREATE INDEX IF NOT EXISTS idx_saved_apks_app_version_code ON saved_apks(app_version_code);
`

const columns = `file_uri, file_name, file_type, file_last_modified, file_size,
    app_name, app_package_name, app_icon, app_version_name, app_version_code,
    app_min_sdk_version, app_target_sdk_version, loaded`

const (
	selectAll = `SELECT ` + columns + ` FROM saved_apks ORDER BY file_name, file_uri`
	selectOne = `SELECT ` + columns + ` FROM saved_apks WHERE file_uri = ?`
	deleteOne = `DELETE FROM saved_apks WHERE file_uri = ?`
	insertOne = `INSERT INTO saved_apks (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	upsertOne = insertOne + `
ON CONFLICT(file_uri) DO UPDATE SET
    file_name = excluded.file_name,
    file_type = excluded.file_type,
    file_last_modified = excluded.file_last_modified,
    file_size = excluded.file_size,
    app_name = excluded.app_name,
    app_package_name = excluded.app_package_name,
    app_icon = excluded.app_icon,
    app_version_name = excluded.app_version_name,
    app_version_code = excluded.app_version_code,
    app_min_sdk_version = excluded.app_min_sdk_version,
    app_target_sdk_version = excluded.app_target_sdk_version,
    loaded = excluded.loaded`
)
