package testutil

import "github.com/leapstack-labs/pgdeps/pkg/core"

// FixtureSchema is the schema every order fixture lives in.
const FixtureSchema = "test"

// ID returns the id of a fixture object in FixtureSchema.
func ID(name string, kind core.ObjectKind) core.ObjectID {
	return core.NewObjectID(FixtureSchema, name, kind)
}

func row(kind core.ObjectKind, name, definition string) core.RawObject {
	return core.RawObject{
		Schema:     FixtureSchema,
		Name:       name,
		Kind:       string(kind),
		Definition: definition,
	}
}

// OrderSchema is a four level order management schema:
//
//	base_entities <- categories <- products, suppliers
//	  <- supplier_products, customers <- orders <- order_items
//
// with routines, views and a stock trigger layered on top. The shortest
// path from order_items to base_entities has length 4. It has no cycles.
func OrderSchema() []core.RawObject {
	return []core.RawObject{
		row(core.KindType, "order_status",
			`CREATE TYPE test.order_status AS ENUM ('pending', 'paid', 'shipped', 'cancelled')`),
		row(core.KindTable, "base_entities", `CREATE TABLE test.base_entities (
    id serial PRIMARY KEY,
    created_at timestamptz NOT NULL DEFAULT now()
)`),
		row(core.KindTable, "categories", `CREATE TABLE test.categories (
    id serial PRIMARY KEY,
    entity_id integer NOT NULL REFERENCES test.base_entities (id),
    parent_id integer REFERENCES test.categories (id),
    name text NOT NULL
)`),
		row(core.KindTable, "products", `CREATE TABLE test.products (
    id serial PRIMARY KEY,
    category_id integer NOT NULL REFERENCES test.categories (id),
    name text NOT NULL,
    stock integer NOT NULL DEFAULT 0
)`),
		row(core.KindTable, "suppliers", `CREATE TABLE test.suppliers (
    id serial PRIMARY KEY,
    category_id integer REFERENCES test.categories (id),
    name text NOT NULL
)`),
		row(core.KindTable, "supplier_products", `CREATE TABLE test.supplier_products (
    supplier_id integer NOT NULL REFERENCES test.suppliers (id),
    product_id integer NOT NULL REFERENCES test.products (id),
    price numeric(12, 2) NOT NULL,
    PRIMARY KEY (supplier_id, product_id)
)`),
		row(core.KindTable, "customers", `CREATE TABLE test.customers (
    id serial PRIMARY KEY,
    preferred_supplier_id integer REFERENCES test.suppliers (id),
    name text NOT NULL
)`),
		row(core.KindSequence, "orders_id_seq",
			`CREATE SEQUENCE test.orders_id_seq START WITH 1 INCREMENT BY 1 OWNED BY test.orders.id`),
		row(core.KindTable, "orders", `CREATE TABLE test.orders (
    id integer PRIMARY KEY DEFAULT nextval('test.orders_id_seq'::regclass),
    customer_id integer NOT NULL REFERENCES test.customers (id),
    status test.order_status NOT NULL DEFAULT 'pending',
    total numeric(12, 2)
)`),
		row(core.KindTable, "order_items", `CREATE TABLE test.order_items (
    id serial PRIMARY KEY,
    order_id integer NOT NULL REFERENCES test.orders (id),
    supplier_id integer NOT NULL,
    product_id integer NOT NULL,
    quantity integer NOT NULL CHECK (quantity > 0),
    unit_price numeric(12, 2) NOT NULL,
    FOREIGN KEY (supplier_id, product_id) REFERENCES test.supplier_products (supplier_id, product_id)
)`),
		row(core.KindIndex, "idx_order_items_order",
			`CREATE INDEX idx_order_items_order ON test.order_items USING btree (order_id)`),
		row(core.KindFunction, "calculate_order_total", calculateOrderTotal),
		row(core.KindFunction, "get_customer_orders", `CREATE OR REPLACE FUNCTION test.get_customer_orders(p_customer_id integer)
RETURNS SETOF test.orders
LANGUAGE sql STABLE
AS $$
    SELECT o.* FROM test.orders o WHERE o.customer_id = p_customer_id ORDER BY o.id;
$$`),
		row(core.KindView, "order_summary", `CREATE VIEW test.order_summary AS
SELECT o.id,
       c.name AS customer_name,
       o.status,
       test.calculate_order_total(o.id) AS total
FROM test.orders o
JOIN test.customers c ON c.id = o.customer_id`),
		row(core.KindMaterializedView, "product_sales", `CREATE MATERIALIZED VIEW test.product_sales AS
SELECT p.id, p.name, sum(oi.quantity) AS sold
FROM test.products p, test.order_items oi
WHERE oi.product_id = p.id
GROUP BY p.id, p.name`),
		row(core.KindView, "customer_dashboard", `CREATE VIEW test.customer_dashboard AS
SELECT s.customer_name, count(*) AS orders, sum(s.total) AS revenue
FROM test.order_summary s
GROUP BY s.customer_name`),
		row(core.KindFunction, "update_product_stock", `CREATE OR REPLACE FUNCTION test.update_product_stock()
RETURNS trigger
LANGUAGE plpgsql
AS $function$
BEGIN
    -- keep stock in line with sold quantities
    UPDATE test.products
       SET stock = stock - NEW.quantity
     WHERE id = NEW.product_id;
    RETURN NEW;
END;
$function$`),
		row(core.KindTrigger, "trg_order_items_stock", `CREATE TRIGGER trg_order_items_stock AFTER INSERT ON test.order_items FOR EACH ROW EXECUTE FUNCTION test.update_product_stock()`),
	}
}

const calculateOrderTotal = `CREATE OR REPLACE FUNCTION test.calculate_order_total(p_order_id integer)
RETURNS numeric
LANGUAGE plpgsql
AS $$
DECLARE
    v_total numeric := 0;
BEGIN
    SELECT COALESCE(SUM(oi.quantity * oi.unit_price), 0)
      INTO v_total
      FROM test.order_items oi
     WHERE oi.order_id = p_order_id;
    RETURN v_total;
END;
$$`

// RecursiveOrderSchema is OrderSchema where calculate_order_total and
// update_order_status call each other.
func RecursiveOrderSchema() []core.RawObject {
	rows := make([]core.RawObject, 0, len(OrderSchema())+1)
	for _, r := range OrderSchema() {
		if r.Name == "calculate_order_total" {
			r.Definition = `CREATE OR REPLACE FUNCTION test.calculate_order_total(p_order_id integer)
RETURNS numeric
LANGUAGE plpgsql
AS $$
DECLARE
    v_total numeric;
BEGIN
    SELECT SUM(quantity * unit_price) INTO v_total FROM test.order_items WHERE order_id = p_order_id;
    IF v_total > 1000 THEN
        PERFORM test.update_order_status(p_order_id, 'paid');
    END IF;
    RETURN v_total;
END;
$$`
		}
		rows = append(rows, r)
	}
	return append(rows, row(core.KindFunction, "update_order_status", `CREATE OR REPLACE FUNCTION test.update_order_status(p_order_id integer, p_status test.order_status)
RETURNS void
LANGUAGE plpgsql
AS $$
BEGIN
    UPDATE test.orders
       SET status = p_status,
           total = test.calculate_order_total(p_order_id)
     WHERE id = p_order_id;
END;
$$`))
}

// AmbiguousSchema has two tables named orders in different schemas and a
// view that names orders without a schema.
func AmbiguousSchema() []core.RawObject {
	return []core.RawObject{
		{Schema: "sales", Name: "orders", Kind: "table", Definition: "CREATE TABLE sales.orders (id integer)"},
		{Schema: "archive", Name: "orders", Kind: "table", Definition: "CREATE TABLE archive.orders (id integer)"},
		{Schema: "reporting", Name: "recent_orders", Kind: "view", Definition: "CREATE VIEW reporting.recent_orders AS SELECT id FROM orders"},
		{Schema: "reporting", Name: "archived_orders", Kind: "view", Definition: "CREATE VIEW reporting.archived_orders AS SELECT id FROM archive.orders"},
	}
}
