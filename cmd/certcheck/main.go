// certcheck diagnostica el certificado digital de un emisor: existencia del archivo,
// contraseña, llave RSA y vigencia.
//
// Uso:
//
//	go run ./cmd/certcheck -cert ruta/cert.p12 -password secreto
//	go run ./cmd/certcheck -ruc 20131312955   (lee ruta y contraseña del emisor en la DB)
//
// Sin flags usa CERT_PATH y CERT_PASSWORD.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/facturador-sunat/internal/infrastructure/postgres"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/facturador-sunat/pkg/config"
)

func main() {
	certPath := flag.String("cert", os.Getenv("CERT_PATH"), "ruta al .p12/.pfx o PEM combinado")
	certPass := flag.String("password", os.Getenv("CERT_PASSWORD"), "contraseña del .p12/.pfx")
	ruc := flag.String("ruc", "", "RUC del emisor registrado (toma ruta y contraseña de la DB)")
	flag.Parse()

	if *ruc != "" {
		path, pass, err := issuerCert(*ruc)
		if err != nil {
			fail("EMISOR", err)
		}
		*certPath, *certPass = path, pass
	}
	if *certPath == "" {
		fmt.Fprintln(os.Stderr, "indique -cert, -ruc o CERT_PATH")
		os.Exit(2)
	}

	fmt.Println("DIAGNÓSTICO DE CERTIFICADO SUNAT")
	fmt.Println("--------------------------------")
	fmt.Printf("Archivo: %s\n", *certPath)

	cert, err := signer.LoadCertificate(*certPath, *certPass)
	if err != nil {
		fail("CERTIFICADO", err)
	}
	info, err := signer.Describe(cert)
	if err != nil {
		fail("CERTIFICADO", err)
	}

	fmt.Printf("Sujeto:   %s\n", info.Subject)
	fmt.Printf("Emisor:   %s\n", info.Issuer)
	fmt.Printf("Serie:    %s\n", info.Serial)
	fmt.Printf("Vigencia: %s -> %s\n", info.NotBefore.Format(time.DateOnly), info.NotAfter.Format(time.DateOnly))

	if info.Expired(time.Now()) {
		fmt.Println("\nERROR: el certificado está vencido.")
		os.Exit(1)
	}
	fmt.Println("\nOK: certificado, contraseña y llave RSA correctos.")
}

func issuerCert(ruc string) (string, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB, "certcheck")
	if err != nil {
		return "", "", err
	}
	defer pool.Close()

	issuer, err := postgres.NewIssuerRepository(pool).GetByRUC(ctx, ruc)
	if err != nil {
		return "", "", err
	}
	if issuer == nil {
		return "", "", fmt.Errorf("no existe un emisor con RUC %s", ruc)
	}
	return issuer.CertPath, issuer.CertPassword, nil
}

func fail(step string, err error) {
	fmt.Printf("\nERROR (%s): %v\n", step, err)
	os.Exit(1)
}
