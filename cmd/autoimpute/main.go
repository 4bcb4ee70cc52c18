// Command autoimpute imputes missing values in CSV, JSON Lines, Parquet,
// Arrow and SQL sources.
package main

import (
	"os"

	"github.com/virtualphoton/autoimpute/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
