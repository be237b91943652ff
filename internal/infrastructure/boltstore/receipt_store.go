// Package boltstore guarda el histórico de constancias de recepción (CDR) en un archivo BoltDB,
// independiente de los archivos sueltos del directorio de CDR.
package boltstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/klauspost/compress/zstd"

	"github.com/jhoicas/facturador-sunat/internal/domain"
)

const (
	bucketReceipts = "receipts"

	// Espera máxima por el flock del archivo cuando otro proceso (api / poller) lo tiene abierto.
	defaultLockWait = 5 * time.Second
)

// ReceiptStore CDR comprimidos con zstd, indexados por nombre (R-<RUC>-<tipo>-<serie>-<número>).
// El archivo se abre en cada operación: bolt toma un flock exclusivo mientras está abierto y
// tanto el API como el poller archivan CDR.
type ReceiptStore struct {
	path     string
	lockWait time.Duration
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// Open crea el archivo y el bucket si no existen.
func Open(path string) (*ReceiptStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("crear directorio de %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("crear encoder zstd: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("crear decoder zstd: %w", err)
	}
	s := &ReceiptStore{path: path, lockWait: defaultLockWait, enc: enc, dec: dec}

	err = s.update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketReceipts))
		return err
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("crear bucket: %w", err)
	}
	return s, nil
}

// Close libera los codificadores zstd.
func (s *ReceiptStore) Close() error {
	s.dec.Close()
	return s.enc.Close()
}

// Put guarda el CDR. Si ya existe el mismo contenido no escribe.
func (s *ReceiptStore) Put(name string, xml []byte) error {
	compressed := s.enc.EncodeAll(xml, nil)
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketReceipts))
		if existing := b.Get([]byte(name)); existing != nil && bytes.Equal(existing, compressed) {
			return nil
		}
		return b.Put([]byte(name), compressed)
	})
}

// Get devuelve el XML del CDR o domain.ErrNotFound.
func (s *ReceiptStore) Get(name string) ([]byte, error) {
	var compressed []byte
	err := s.view(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketReceipts)).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("cdr %s: %w", name, domain.ErrNotFound)
		}
		// v solo es válido dentro de la transacción.
		compressed = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	xml, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("descomprimir cdr %s: %w", name, err)
	}
	return xml, nil
}

// Names lista los CDR guardados en orden de clave.
func (s *ReceiptStore) Names() ([]string, error) {
	names := []string{}
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketReceipts)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func (s *ReceiptStore) update(fn func(*bolt.Tx) error) error {
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.lockWait})
	if err != nil {
		return fmt.Errorf("abrir %s: %w", s.path, err)
	}
	defer db.Close()
	return db.Update(fn)
}

func (s *ReceiptStore) view(fn func(*bolt.Tx) error) error {
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.lockWait, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("abrir %s: %w", s.path, err)
	}
	defer db.Close()
	return db.View(fn)
}
