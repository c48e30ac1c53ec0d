package filter

import "testing"

func TestWhere_ParsesLookupSuffix(t *testing.T) {
	f := Where("email__iexact", "a@x.com")
	if f.Field != "email" || f.Lookup != IExact {
		t.Fatalf("unexpected filter: %+v", f)
	}
	if f.Key() != "email__iexact" {
		t.Fatalf("key: %q", f.Key())
	}

	bare := Where("phone", "+7900")
	if bare.Lookup != Exact || bare.Key() != "phone" {
		t.Fatalf("bare key must be an exact match: %+v", bare)
	}

	nested := Where("created_at__gte", 1)
	if nested.Field != "created_at" || nested.Lookup != Gte {
		t.Fatalf("underscores inside the field must survive: %+v", nested)
	}
	if Eq("id", 7).String() != "id=7" {
		t.Fatalf("string: %q", Eq("id", 7).String())
	}
}
