package service

import (
	"context"

	"duty-planner/internal/config"
	"duty-planner/internal/model"
	"duty-planner/internal/repository"
)

// UserResolver supplies the users associated with an obligation when its
// descriptor names none.
type UserResolver interface {
	UsersForEvent(ctx context.Context, section, side string) ([]uint, error)
}

// DirectoryResolver looks users up in the section directory.
type DirectoryResolver struct {
	members *repository.MemberRepository
}

func NewDirectoryResolver(members *repository.MemberRepository) *DirectoryResolver {
	return &DirectoryResolver{members: members}
}

func (r *DirectoryResolver) UsersForEvent(ctx context.Context, section, side string) ([]uint, error) {
	return r.members.UsersFor(ctx, section, side)
}

// SeedMembers copies configured memberships into the directory.
func SeedMembers(ctx context.Context, members *repository.MemberRepository, seed []config.Member) error {
	for _, m := range seed {
		if err := members.Upsert(ctx, m.UserID, model.NormalizeKey(m.Section), model.NormalizeKey(m.Side)); err != nil {
			return err
		}
	}
	return nil
}

// resolveUsers keeps explicit users, or asks the resolver for section members.
func resolveUsers(ctx context.Context, resolver UserResolver, explicit []uint, section, side string) ([]uint, error) {
	if ids := model.NewUserIDs(explicit...); len(ids) > 0 {
		return ids, nil
	}
	if resolver == nil {
		return nil, nil
	}
	ids, err := resolver.UsersForEvent(ctx, section, side)
	if err != nil {
		return nil, err
	}
	return model.NewUserIDs(ids...), nil
}
