// Package permission decides whether an actor may act on a resource.
package permission

import (
	"fmt"
	"reflect"

	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/model"
)

// Policy is the pluggable (actor, permission, resource) decision. A nil
// actor is an anonymous caller.
type Policy interface {
	Allow(actor *model.User, perm model.Permission, resource model.Resource) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(actor *model.User, perm model.Permission, resource model.Resource) bool

func (f PolicyFunc) Allow(actor *model.User, perm model.Permission, resource model.Resource) bool {
	return f(actor, perm, resource)
}

// Principals lists everything actor acts as.
func Principals(actor *model.User) []model.Principal {
	out := []model.Principal{model.EveryonePrincipal}
	if actor == nil || actor.ID == 0 {
		return out
	}
	out = append(out, model.AuthenticatedPrincipal, model.UserPrincipal(actor.ID))
	if actor.IsAdmin {
		out = append(out, model.RolePrincipal("admin"))
	}
	return out
}

// ACLPolicy grants perm when any principal of the actor holds it in the
// resource ACL.
type ACLPolicy struct{}

func (ACLPolicy) Allow(actor *model.User, perm model.Permission, resource model.Resource) bool {
	held := make(map[model.Principal]struct{})
	for _, p := range Principals(actor) {
		held[p] = struct{}{}
	}
	for _, entry := range resource.ACL() {
		if _, ok := held[entry.Principal]; !ok {
			continue
		}
		for _, p := range entry.Permissions {
			if p == perm {
				return true
			}
		}
	}
	return false
}

type Checker struct {
	policy Policy
}

func NewChecker(policy Policy) *Checker {
	if policy == nil {
		policy = ACLPolicy{}
	}
	return &Checker{policy: policy}
}

// Assert checks perm on resource, which is either a single model.Resource or
// a slice of them. Every element must be allowed.
func (c *Checker) Assert(actor *model.User, perm model.Permission, resource any) error {
	if r, ok := resource.(model.Resource); ok {
		return c.assertOne(actor, perm, r)
	}

	v := reflect.ValueOf(resource)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return customErrors.WrapInternal(fmt.Errorf("%T is not a resource", resource), "permission check")
	}
	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i)
		r, ok := elem.Interface().(model.Resource)
		if !ok && elem.CanAddr() {
			r, ok = elem.Addr().Interface().(model.Resource)
		}
		if !ok {
			return customErrors.WrapInternal(fmt.Errorf("%s is not a resource", elem.Type()), "permission check")
		}
		if err := c.assertOne(actor, perm, r); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) assertOne(actor *model.User, perm model.Permission, r model.Resource) error {
	if !c.policy.Allow(actor, perm, r) {
		return customErrors.NewForbidden("You don't have permission to perform this action")
	}
	return nil
}
