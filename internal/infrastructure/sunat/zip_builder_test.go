package sunat_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
)

func TestZipBuilder_Pack_UnaEntradaConNombreDelXML(t *testing.T) {
	dir := t.TempDir()
	xmlPath := filepath.Join(dir, "20131312955-01-F001-00000001.xml")
	require.NoError(t, os.WriteFile(xmlPath, []byte("<Invoice/>"), 0o644))

	zipPath, err := sunat.NewZipBuilder().Pack(xmlPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20131312955-01-F001-00000001.zip"), zipPath)

	zr, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1, "el ZIP debe tener una sola entrada")
	assert.Equal(t, "20131312955-01-F001-00000001.xml", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "<Invoice/>", string(content))
}

func TestZipBuilder_Pack_XMLInexistente(t *testing.T) {
	_, err := sunat.NewZipBuilder().Pack(filepath.Join(t.TempDir(), "no-existe.xml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPackaging)
}
