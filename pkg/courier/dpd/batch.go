package dpd

import (
	"context"

	"github.com/tournevent/parcelbridge/pkg/courier"
	"golang.org/x/sync/errgroup"
)

// maxParallelSends bounds concurrent registrations in SendEach.
const maxParallelSends = 4

// SendEach registers every package in its own call, concurrently, each on a
// forked workflow with its own session. Results are in input order. A
// validation or transport error on any package cancels the rest and is
// returned; business rejections are reported per result.
func (c *Client) SendEach(ctx context.Context, packages []courier.Package) ([]*courier.SendResult, error) {
	if len(packages) == 0 {
		return nil, courier.NewValidationError(courier.CodeMissingData, "packages are required").WithOp("SendEach")
	}

	results := make([]*courier.SendResult, len(packages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSends)

	for i := range packages {
		g.Go(func() error {
			res, err := c.Fork().SendPackages(ctx, []courier.Package{packages[i]})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
