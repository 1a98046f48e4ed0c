package platform

import (
	"fmt"
	"strings"

	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/metadata"
	"github.com/txn2/fedquery/pkg/metadata/datahub"
)

// newCatalog builds the configured catalog. The returned closer is nil
// unless the catalog holds a client.
func newCatalog(cfg MetadataConfig) (metadata.Catalog, func() error, error) {
	switch cfg.Provider {
	case MetadataDataHub:
		dh, err := datahub.New(cfg.DataHub)
		if err != nil {
			return nil, nil, fmt.Errorf("creating datahub catalog: %w", err)
		}
		return metadata.NewCachedCatalog(dh, cfg.CacheTTL), dh.Close, nil
	case MetadataMemory, "":
		mc, err := memoryCatalog(cfg)
		if err != nil {
			return nil, nil, err
		}
		return mc, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata provider %q", cfg.Provider)
	}
}

func memoryCatalog(cfg MetadataConfig) (*metadata.MemoryCatalog, error) {
	mc := metadata.NewMemoryCatalog()
	for _, td := range cfg.Tables {
		t, err := buildTable(td)
		if err != nil {
			return nil, err
		}
		mc.AddTable(t)
	}
	for _, pd := range cfg.Procedures {
		p, err := buildProcedure(pd)
		if err != nil {
			return nil, err
		}
		mc.AddProcedure(p)
	}
	return mc, nil
}

func buildTable(td TableDef) (*metadata.Table, error) {
	if td.Name == "" {
		return nil, fmt.Errorf("table in schema %q has no name", td.Schema)
	}
	t := &metadata.Table{
		Schema:       td.Schema,
		Name:         td.Name,
		NameInSource: td.NameInSource,
		Updatable:    td.Updatable,
	}
	for _, cd := range td.Columns {
		c, err := buildColumn(cd)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.FullName(), err)
		}
		t.AddColumn(c)
	}
	return t, nil
}

func buildColumn(cd ColumnDef) (*metadata.Column, error) {
	typ, err := datatype.Parse(cd.Type)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", cd.Name, err)
	}
	return &metadata.Column{
		Name:         cd.Name,
		NameInSource: cd.NameInSource,
		Type:         typ,
		Nullable:     cd.Nullable,
	}, nil
}

func buildProcedure(pd ProcedureDef) (*metadata.Procedure, error) {
	if pd.Name == "" {
		return nil, fmt.Errorf("procedure in schema %q has no name", pd.Schema)
	}
	p := &metadata.Procedure{Schema: pd.Schema, Name: pd.Name, NameInSource: pd.NameInSource}
	for _, param := range pd.Parameters {
		typ, err := datatype.Parse(param.Type)
		if err != nil {
			return nil, fmt.Errorf("procedure %s parameter %s: %w", p.FullName(), param.Name, err)
		}
		dir, err := parseDirection(param.Direction)
		if err != nil {
			return nil, fmt.Errorf("procedure %s parameter %s: %w", p.FullName(), param.Name, err)
		}
		p.AddParameter(&metadata.ProcedureParameter{
			Name:         param.Name,
			NameInSource: param.NameInSource,
			Type:         typ,
			Direction:    dir,
		})
	}
	for _, cd := range pd.ResultSet {
		c, err := buildColumn(cd)
		if err != nil {
			return nil, fmt.Errorf("procedure %s: %w", p.FullName(), err)
		}
		p.ResultSet = append(p.ResultSet, c)
	}
	return p, nil
}

func parseDirection(s string) (metadata.Direction, error) {
	switch strings.ToLower(s) {
	case "", "in":
		return metadata.DirectionIn, nil
	case "out":
		return metadata.DirectionOut, nil
	case "inout":
		return metadata.DirectionInOut, nil
	case "return":
		return metadata.DirectionReturn, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}
