package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataimport/internal/mapper"
	"dataimport/internal/schema"
	"dataimport/pkg/records"
)

func row(line int, raw records.Sample) records.Row {
	return records.Row{Line: line, Raw: raw}
}

func TestBuild_Clients(t *testing.T) {
	headers := []string{"Company Name", "Status", "Tags", "Annual Revenue", "Email Opt In"}
	m := mapper.MapSchema(schema.Clients, headers, nil)
	require.Len(t, m.Mappings, 5)

	rows := []records.Row{
		row(2, records.Sample{"Company Name": " Acme ", "Status": "Active", "Tags": "a; b;", "Annual Revenue": "$1,200.50", "Email Opt In": "yes"}),
		row(3, records.Sample{"Company Name": "Globex", "Status": "", "Tags": "", "Annual Revenue": "", "Email Opt In": ""}),
		row(4, records.Sample{"Company Name": "", "Status": "lead"}),
		row(5, records.Sample{"Company Name": "Initech", "Status": "won"}),
		row(6, records.Sample{"Company Name": "Globex", "Status": "", "Tags": "", "Annual Revenue": "", "Email Opt In": ""}),
		row(7, records.Sample{"Company Name": "Hooli", "Annual Revenue": "lots"}),
	}
	res := Build(schema.Clients, m.Mappings, schema.DefaultsFor(schema.Clients), rows)

	require.Len(t, res.Records, 2)
	acme := res.Records[0]
	assert.Equal(t, "Acme", acme["companyName"])
	assert.Equal(t, "active", acme["status"])
	assert.Equal(t, []string{"a", "b"}, acme["tags"])
	assert.Equal(t, 1200.5, acme["annualRevenue"])
	assert.Equal(t, true, acme["emailOptIn"])
	assert.Equal(t, false, acme["smsOptIn"])

	globex := res.Records[1]
	assert.Equal(t, "lead", globex["status"])
	assert.Equal(t, false, globex["emailOptIn"])
	assert.NotContains(t, globex, "tags")

	assert.Equal(t, 1, res.Duplicates)
	require.Len(t, res.Rejected, 3)
	assert.Equal(t, 4, res.Rejected[0].Line)
	assert.Contains(t, res.Rejected[0].Reason, "required field companyName is empty")
	assert.Equal(t, 5, res.Rejected[1].Line)
	assert.Contains(t, res.Rejected[1].Reason, `"won" is not a valid status`)
	assert.Equal(t, 7, res.Rejected[2].Line)
	assert.Contains(t, res.Rejected[2].Reason, "not a number")
}

func TestBuild_ProjectsCoercion(t *testing.T) {
	mappings := []mapper.FieldMapping{
		{CSVColumn: "Project", SchemaField: "projectName", Confidence: 0.8},
		{CSVColumn: "Client", SchemaField: "clientId", Confidence: 0.8},
		{CSVColumn: "State", SchemaField: "status", Confidence: 0.7},
		{CSVColumn: "Start", SchemaField: "startDate", Confidence: 0.8},
		{CSVColumn: "Billable", SchemaField: "billable", Confidence: 1},
		{CSVColumn: "Other", SchemaField: "projectName", Confidence: 1},
		{CSVColumn: "Ghost", SchemaField: "noSuchField", Confidence: 1},
	}
	rows := []records.Row{
		row(2, records.Sample{"Project": "Site", "Client": "c-1", "State": "On Hold", "Start": "15.01.2024", "Billable": "1", "Other": "ignored", "Ghost": "x"}),
		row(3, records.Sample{"Project": "App", "Client": "c-2", "State": "", "Start": "someday", "Billable": "0"}),
		row(4, records.Sample{"Project": "Ops", "Client": "c-3", "Billable": "perhaps"}),
	}
	res := Build(schema.Projects, mappings, schema.DefaultsFor(schema.Projects), rows)

	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, "Site", r["projectName"])
	assert.Equal(t, "on-hold", r["status"])
	assert.Equal(t, "one-off", r["projectType"])
	assert.Equal(t, "2024-01-15", r["startDate"])
	assert.Equal(t, true, r["billable"])
	assert.NotContains(t, r, "noSuchField")

	require.Len(t, res.Rejected, 2)
	assert.Contains(t, res.Rejected[0].Reason, "not a date")
	assert.Contains(t, res.Rejected[1].Reason, "not a boolean")
}

func TestBuild_NoRows(t *testing.T) {
	res := Build(schema.Clients, nil, nil, nil)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Rejected)
	assert.Zero(t, res.Duplicates)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList("a, b ,c"))
	assert.Equal(t, []string{"x,y", "z"}, splitList("x,y; z;"))
	assert.Nil(t, splitList(" , ;"))
}
