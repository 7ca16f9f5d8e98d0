package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	CreateCommitment(ctx context.Context, commitment *Commitment, lines []CommitmentLine) error
	FindCommitment(ctx context.Context, id snowflake.ID) (*Commitment, error)
	ListLines(ctx context.Context, commitmentID snowflake.ID) ([]CommitmentLine, error)
	FindLine(ctx context.Context, id snowflake.ID) (*CommitmentLine, error)

	CreateChangeOrder(ctx context.Context, order *ChangeOrder, lines []CommitmentLine) error
	FindChangeOrder(ctx context.Context, id snowflake.ID) (*ChangeOrder, error)
	ListChangeOrders(ctx context.Context, commitmentID snowflake.ID) ([]ChangeOrder, error)
	UpdateChangeOrder(ctx context.Context, order *ChangeOrder) error
}
