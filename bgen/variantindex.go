package bgen

import (
	"strings"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
)

type BGIIndex struct {
	DB       *sqlx.DB
	Metadata *BGIMetadata
}

func (b *BGIIndex) Close() error {
	return b.DB.Close()
}

// OpenBGI opens the sqlite index (.bgi) of a bgen file. The driver is chosen
// at build time: mattn/go-sqlite3 with cgo, modernc.org/sqlite without.
func OpenBGI(path string) (*BGIIndex, error) {
	bgi := &BGIIndex{
		Metadata: &BGIMetadata{},
	}

	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html . It seems that sqlite3 permitted
	// URI filenames without the file: prefix, but that is not standard.
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.Connect(whichSQLiteDriver, path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	bgi.DB = db

	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	// Not all index files have metadata; ignore any error
	_ = bgi.DB.Get(bgi.Metadata, "SELECT * FROM Metadata LIMIT 1")

	return bgi, nil
}

// Lookup returns the index rows for a variant identifier. The same rsid can
// label more than one row, e.g. at multi-allelic sites split into biallelic
// records.
func (b *BGIIndex) Lookup(rsid string) ([]VariantIndex, error) {
	var rows []VariantIndex
	if err := b.DB.Select(&rows, "SELECT * FROM Variant WHERE rsid = ? ORDER BY file_start_position ASC", rsid); err != nil {
		return nil, pfx.Err(err)
	}

	return rows, nil
}

// Region returns the index rows on chromosome with start <= position <= end,
// in file order.
func (b *BGIIndex) Region(chromosome string, start, end uint32) ([]VariantIndex, error) {
	var rows []VariantIndex
	if err := b.DB.Select(&rows, "SELECT * FROM Variant WHERE chromosome = ? AND position >= ? AND position <= ? ORDER BY file_start_position ASC", chromosome, start, end); err != nil {
		return nil, pfx.Err(err)
	}

	return rows, nil
}

// VariantIndex conforms to the data found in the rows of the SQLite table
// "Variant" from BGEN Index (.bgi) files, and can be easily parsed with sqlx.
type VariantIndex struct {
	Chromosome        string
	Position          uint32
	RSID              string `db:"rsid"`
	NAlleles          uint16 `db:"number_of_alleles"`
	Allele1           Allele
	Allele2           Allele
	FileStartPosition uint `db:"file_start_position"`
	SizeInBytes       uint `db:"size_in_bytes"`
}

// BGIMetadata conforms to the data found in the rows of the SQLite table
// "Metadata" from more recent versions of BGEN.
type BGIMetadata struct {
	Filename           string
	FileSize           uint   `db:"file_size"`
	LastWriteTime      Time   `db:"last_write_time"`
	FirstThousandBytes []byte `db:"first_1000_bytes"`
	IndexCreationTime  Time   `db:"index_creation_time"`
}
