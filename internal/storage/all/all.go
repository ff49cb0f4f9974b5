// Package all links every storage backend into the binary.
package all

import (
	_ "graphetl/internal/storage/arrowipc"
	_ "graphetl/internal/storage/mssql"
	_ "graphetl/internal/storage/parquet"
	_ "graphetl/internal/storage/postgres"
	_ "graphetl/internal/storage/sqlite"
)
