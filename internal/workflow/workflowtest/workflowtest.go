// Package workflowtest provides workflow fixtures for tests.
package workflowtest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/yxflow/internal/workflow"
)

// SamplePath is where NewStore places Sample.
const SamplePath = "/work/sample.yxmd"

// Sample is a small workflow exercising nested containers, both connection
// locations, row-limit leaves, a Select tool and unknown elements.
//
//	1  DbFileInput   FormatSpecificOptions/Connection=CONN_SALES, Query
//	2  Filter
//	3  ToolContainer "Staging"
//	   4  DbFileInput  Configuration/Connection=CONN_LEGACY
//	   5  Sample       First=10
//	   6  ToolContainer (no caption)
//	      7  Sample      N=5
//	      8  DbFileOutput File=out.csv
//	9  DbFileOutput  Configuration/Connection=CONN_SALES
//	10 Formula       no connection
//	11 AlteryxSelect SelectFields
//	12 BrowseV2      no Configuration
const Sample = `<?xml version="1.0" encoding="utf-8"?>
<AlteryxDocument yxmdVer="2024.1" RunE2="T">
  <Nodes>
    <Node ToolID="1">
      <GuiSettings Plugin="AlteryxBasePluginsGui.DbFileInput.DbFileInput">
        <Position x="54" y="102" />
      </GuiSettings>
      <Properties>
        <Configuration>
          <Passwords />
          <File OutputFileName="" RecordLimit="" FileFormat="23">aka:CONN_SALES|||SELECT * FROM customers</File>
          <FormatSpecificOptions>
            <Connection DcmType="ConnectionId">CONN_SALES</Connection>
            <Query>SELECT * FROM customers</Query>
            <PreSQL />
          </FormatSpecificOptions>
        </Configuration>
        <Annotation DisplayMode="0">
          <Name />
          <DefaultAnnotationText>Load customers from Sales DB</DefaultAnnotationText>
          <Left value="False" />
        </Annotation>
      </Properties>
      <EngineSettings EngineDll="AlteryxBasePluginsEngine.dll" EngineDllEntryPoint="AlteryxDbFileInput" />
    </Node>
    <Node ToolID="2">
      <GuiSettings Plugin="AlteryxBasePluginsGui.Filter.Filter">
        <Position x="150" y="102" />
      </GuiSettings>
      <Properties>
        <Configuration>
          <Expression>[Active] = True</Expression>
          <Mode>Custom</Mode>
          <Vendor flavor="x" order="2" alpha="1">kept</Vendor>
        </Configuration>
        <Annotation DisplayMode="0">
          <Name />
          <DefaultAnnotationText>Active only</DefaultAnnotationText>
          <Left value="False" />
        </Annotation>
      </Properties>
    </Node>
    <Node ToolID="3">
      <GuiSettings Plugin="AlteryxGuiToolkit.ToolContainer.ToolContainer">
        <Position x="300" y="40" width="400" height="300" />
      </GuiSettings>
      <Properties>
        <Configuration>
          <Caption>Staging</Caption>
          <Style TextColor="#314c4a" FillColor="#ecf2f2" />
        </Configuration>
        <Annotation DisplayMode="0">
          <Name />
          <DefaultAnnotationText />
          <Left value="False" />
        </Annotation>
      </Properties>
      <ChildNodes>
        <Node ToolID="4">
          <GuiSettings Plugin="AlteryxBasePluginsGui.DbFileInput.DbFileInput">
            <Position x="320" y="80" />
          </GuiSettings>
          <Properties>
            <Configuration>
              <Connection DcmType="ConnectionId">CONN_LEGACY</Connection>
              <FormatSpecificOptions>
                <Query>SELECT id FROM orders</Query>
              </FormatSpecificOptions>
            </Configuration>
            <Annotation DisplayMode="0">
              <Name />
              <DefaultAnnotationText>Orders (Legacy DB)</DefaultAnnotationText>
              <Left value="False" />
            </Annotation>
          </Properties>
        </Node>
        <Node ToolID="5">
          <GuiSettings Plugin="AlteryxBasePluginsGui.Sample.Sample">
            <Position x="420" y="80" />
          </GuiSettings>
          <Properties>
            <Configuration>
              <Mode>First</Mode>
              <First>10</First>
            </Configuration>
            <Annotation DisplayMode="0">
              <Name />
              <DefaultAnnotationText>First 10</DefaultAnnotationText>
              <Left value="False" />
            </Annotation>
          </Properties>
        </Node>
        <Node ToolID="6">
          <GuiSettings Plugin="AlteryxGuiToolkit.ToolContainer.ToolContainer">
            <Position x="320" y="160" width="300" height="150" />
          </GuiSettings>
          <Properties>
            <Configuration>
              <Style TextColor="#314c4a" FillColor="#ecf2f2" />
            </Configuration>
          </Properties>
          <ChildNodes>
            <Node ToolID="7">
              <GuiSettings Plugin="AlteryxBasePluginsGui.Sample.Sample">
                <Position x="340" y="200" />
              </GuiSettings>
              <Properties>
                <Configuration>
                  <Mode>Sample</Mode>
                  <N>5</N>
                  <GroupByField>Region</GroupByField>
                </Configuration>
              </Properties>
            </Node>
            <Node ToolID="8">
              <GuiSettings Plugin="AlteryxBasePluginsGui.DbFileOutput.DbFileOutput">
                <Position x="440" y="200" />
              </GuiSettings>
              <Properties>
                <Configuration>
                  <File MaxRecords="" FileFormat="0">out.csv</File>
                </Configuration>
              </Properties>
            </Node>
          </ChildNodes>
        </Node>
      </ChildNodes>
    </Node>
    <Node ToolID="9">
      <GuiSettings Plugin="AlteryxBasePluginsGui.DbFileOutput.DbFileOutput">
        <Position x="750" y="102" />
      </GuiSettings>
      <Properties>
        <Configuration>
          <Connection DcmType="ConnectionId">CONN_SALES</Connection>
          <File FileFormat="23">aka:CONN_SALES|||reporting.customers</File>
        </Configuration>
        <Annotation DisplayMode="0">
          <Name />
          <DefaultAnnotationText>Write to Sales DB</DefaultAnnotationText>
          <Left value="False" />
        </Annotation>
      </Properties>
    </Node>
    <Node ToolID="10">
      <GuiSettings Plugin="AlteryxBasePluginsGui.Formula.Formula">
        <Position x="850" y="102" />
      </GuiSettings>
      <Properties>
        <Configuration>
          <FormulaFields>
            <FormulaField expression="1" field="One" size="4" type="Int32" />
            <FormulaField expression="2" field="Two" size="4" type="Int32" />
          </FormulaFields>
        </Configuration>
      </Properties>
    </Node>
    <Node ToolID="11">
      <GuiSettings Plugin="AlteryxBasePluginsGui.AlteryxSelect.AlteryxSelect">
        <Position x="950" y="102" />
      </GuiSettings>
      <Properties>
        <Configuration>
          <OrderChanged value="False" />
          <SelectFields>
            <SelectField field="Name" selected="True" />
            <SelectField field="Secret" selected="True" />
            <SelectField field="*Unknown" selected="True" />
          </SelectFields>
        </Configuration>
      </Properties>
    </Node>
    <Node ToolID="12">
      <GuiSettings Plugin="AlteryxBasePluginsGui.BrowseV2.BrowseV2">
        <Position x="1050" y="102" />
      </GuiSettings>
    </Node>
  </Nodes>
  <Connections>
    <Connection>
      <Origin ToolID="1" Connection="Output" />
      <Destination ToolID="2" Connection="Input" />
    </Connection>
    <Connection>
      <Origin ToolID="2" Connection="True" />
      <Destination ToolID="9" Connection="Input" />
    </Connection>
    <Connection>
      <Origin ToolID="4" />
      <Destination ToolID="5" />
    </Connection>
  </Connections>
  <Properties>
    <MetaInfo>
      <Name>sample</Name>
      <Description>Fixture</Description>
    </MetaInfo>
  </Properties>
</AlteryxDocument>
`

// NewFS returns an in-memory filesystem holding files (path -> content).
func NewFS(t testing.TB, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		f, err := fs.Create(path)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	return fs
}

// NewStore returns a Store over an in-memory filesystem holding Sample at
// SamplePath.
func NewStore(t testing.TB) *workflow.Store {
	t.Helper()
	return workflow.NewStore(NewFS(t, map[string]string{SamplePath: Sample}))
}

// ReadFile returns the content of path on fs.
func ReadFile(t testing.TB, fs billy.Filesystem, path string) string {
	t.Helper()
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(data)
}

// Hash returns the hex SHA-256 of path on fs.
func Hash(t testing.TB, fs billy.Filesystem, path string) string {
	t.Helper()
	sum := sha256.Sum256([]byte(ReadFile(t, fs, path)))
	return hex.EncodeToString(sum[:])
}
