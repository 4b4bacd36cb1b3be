package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate(t *testing.T) {
	data := Template()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	lines := bytes.Split(bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM)), []byte("\n"))
	require.Len(t, lines, 5)
	assert.Equal(t, "Grupo,Área,Subárea,Disciplina,CodigoDisciplina,CargaHoraria,Ementa,Observacoes", string(lines[0]))
	assert.True(t, bytes.HasPrefix(lines[1], []byte(`"Ciências da Saúde","Medicina",`)))

	// the template is itself a valid import
	pf, err := Parse(FileInfo{Name: TemplateFileName, Data: data})
	require.NoError(t, err)
	res := Validate(pf)
	assert.True(t, res.OK)
	assert.Equal(t, Totals{Rows: 4, Grupos: 4, Areas: 4, Subareas: 4, Disciplinas: 4}, res.Totals)
}

func TestGroupCodeBase(t *testing.T) {
	assert.Equal(t, "GRP-ENGENHARIACIVIL", GroupCodeBase("Engenharia Civil"))
	assert.Equal(t, "GRP-TI2024", GroupCodeBase("TI 2024!"))
	assert.Equal(t, "GRP-CINCIASDASADE", GroupCodeBase("Ciências da Saúde"))
}
