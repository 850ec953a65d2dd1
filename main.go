package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arcafe/go-arca-client/arca"
	"github.com/arcafe/go-arca-client/arca/util"
)

func main() {

	logrus.SetLevel(logrus.DebugLevel)

	cuit := util.GetEnvOrFailed("ARCA_CUIT")
	cert := util.GetEnvOrFailed("ARCA_CERT_PATH")
	key := util.GetEnvOrFailed("ARCA_KEY_PATH")

	client, err := arca.NewClient(arca.Config{
		CertPath:           cert,
		KeyPath:            key,
		CUIT:               cuit,
		Env:                arca.Testing,
		InsecureSkipVerify: true, // staging certificate does not verify
	})
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	last, err := client.LastInvoiceNumber(ctx, 2)
	if err != nil {
		panic(err)
	}
	fmt.Println("last authorized invoice number:", last)

	records, err := client.History(ctx, time.Time{}, time.Time{}, []int{1, 2})
	if err != nil {
		panic(err)
	}

	for _, r := range records {
		fmt.Printf("%05d-%08d  %s  %s  %s  CAE %s\n",
			r.PointOfSale, r.Sequence, r.IssueDate, r.RecipientTaxID, r.Amount, r.AuthCode)
	}
}
