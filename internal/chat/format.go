package chat

import (
	"fmt"
	"strings"

	"ecomx/internal/catalog"
	"ecomx/internal/dashboard"
	"ecomx/internal/domain"
)

func formatOrders(orders []dashboard.RecentOrder) string {
	if len(orders) == 0 {
		return "No recent orders found."
	}
	var sb strings.Builder
	sb.WriteString("Recent Orders:\n\n")
	for _, o := range orders {
		fmt.Fprintf(&sb, "Order #%d - N%s\n", o.ID, o.TotalPrice.StringFixed(2))
		fmt.Fprintf(&sb, "Status: %s\n", o.Status)
		fmt.Fprintf(&sb, "Date: %s\n", o.CreatedAt.Format("2006-01-02"))
		if o.CartID != nil {
			sb.WriteString("Products:\n")
			for _, it := range o.Items {
				fmt.Fprintf(&sb, "- %dx %s (N%s)\n", it.Quantity, it.Product, it.Price.StringFixed(2))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatProducts(products []domain.Product) string {
	if len(products) == 0 {
		return "No products found in your store."
	}
	var sb strings.Builder
	sb.WriteString("Your Products:\n\n")
	for _, p := range products {
		category := "None"
		if p.Category != nil {
			category = p.Category.Name
		}
		fmt.Fprintf(&sb, "ID: %d\n", p.ID)
		fmt.Fprintf(&sb, "Name: %s\n", p.Name)
		fmt.Fprintf(&sb, "Category: %s\n", category)
		fmt.Fprintf(&sb, "Price: N%s\n", p.Price.StringFixed(2))
		fmt.Fprintf(&sb, "Description: %s\n", p.Description)
		fmt.Fprintf(&sb, "Stock: %d\n", p.Stock)
		fmt.Fprintf(&sb, "Images: %d\n\n", len(p.Images))
	}
	return sb.String()
}

func formatCategories(cats []catalog.CategoryCount) string {
	if len(cats) == 0 {
		return "No categories found in your store."
	}
	var sb strings.Builder
	sb.WriteString("Your Categories:\n\n")
	for _, c := range cats {
		fmt.Fprintf(&sb, "ID: %d\n", c.ID)
		fmt.Fprintf(&sb, "Name: %s\n", c.Name)
		fmt.Fprintf(&sb, "Products: %d\n\n", c.Products)
	}
	return sb.String()
}

func formatStats(st *dashboard.StoreStats) string {
	var sb strings.Builder
	sb.WriteString("Store Statistics:\n\n")
	fmt.Fprintf(&sb, "Store Name: %s\n", st.StoreName)
	fmt.Fprintf(&sb, "Total Products: %d\n", st.Products)
	fmt.Fprintf(&sb, "Total Orders: %d\n", st.Orders)
	fmt.Fprintf(&sb, "Total Revenue: N%s\n", st.Revenue.StringFixed(2))
	fmt.Fprintf(&sb, "Total Customers: %d\n", st.Customers)
	fmt.Fprintf(&sb, "Recent Orders: %d\n", st.RecentOrders)
	return sb.String()
}
