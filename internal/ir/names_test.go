package ir

import "testing"

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "a", want: "a"},
		{in: "testCamel", want: "test_camel"},
		{in: "orderLineID", want: "order_line_i_d"},
		{in: "TestSealed", want: "test_sealed"},
		{in: "S1", want: "s1"},
		{in: "already_snake", want: "already_snake"},
		{in: "kebab-name", want: "kebab_name"},
	}

	for _, tc := range tests {
		got := SnakeCase(tc.in)
		if got != tc.want {
			t.Fatalf("SnakeCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOuterClassName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "default.proto", want: "DefaultProto"},
		{in: "test1.proto", want: "Test1Proto"},
		{in: "order-events.proto", want: "OrderEventsProto"},
		{in: "sales/order_lines.proto", want: "OrderLinesProto"},
		{in: "LOUD_NAME.proto", want: "LoudNameProto"},
	}

	for _, tc := range tests {
		got := OuterClassName(tc.in)
		if got != tc.want {
			t.Fatalf("OuterClassName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
